package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/agents"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

// AdminAgentList is the back-office agent roster.
func AdminAgentList(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := agents.AdminListInput{
			Query:      strings.TrimSpace(r.URL.Query().Get("q")),
			Pagination: params,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseAgentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		list, err := svc.AdminList(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type agentDecisionBody struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// AdminAgentDecision rules on a pending application.
func AdminAgentDecision(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := pathUUID(r, "agentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body agentDecisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agent, err := svc.Decide(r.Context(), agents.DecisionInput{
			AgentID:   agentID,
			Decision:  enums.AgentStatus(body.Decision),
			DecidedBy: adminID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, agent)
	}
}

// AdminRedemptionList is the back-office payout queue.
func AdminRedemptionList(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := agents.RedemptionListInput{Pagination: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRedemptionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("agent_id")); raw != "" {
			agentID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent_id filter"))
				return
			}
			input.AgentID = &agentID
		}

		list, err := svc.AdminListRedemptions(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type redemptionDecisionBody struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected paid"`
	Note     string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AdminRedemptionDecision rules on a payout request.
func AdminRedemptionDecision(svc agents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redemptionID, err := pathUUID(r, "redemptionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body redemptionDecisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		redemption, err := svc.DecideRedemption(r.Context(), agents.RedemptionDecisionInput{
			RedemptionID: redemptionID,
			Decision:     enums.RedemptionStatus(body.Decision),
			DecidedBy:    adminID,
			Note:         body.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemption)
	}
}
