package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tecbunny/tecbunny-backend/api/responses"
	"github.com/tecbunny/tecbunny-backend/api/validators"
	"github.com/tecbunny/tecbunny-backend/internal/catalog"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

type productCreateBody struct {
	Slug        string  `json:"slug" validate:"required,max=160"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Category    string  `json:"category" validate:"required"`
	Brand       *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	Price       string  `json:"price" validate:"required"`
	MRP         string  `json:"mrp" validate:"required"`
	StockQty    int     `json:"stock_qty" validate:"gte=0"`
	IsFeatured  bool    `json:"is_featured"`
}

// AdminProductCreate adds a catalog row.
func AdminProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body productCreateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseProductCategory(body.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}
		price, err := decimal.NewFromString(body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}
		mrp, err := decimal.NewFromString(body.MRP)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mrp"))
			return
		}

		product, err := svc.Create(r.Context(), catalog.CreateProductInput{
			Slug:        body.Slug,
			Name:        body.Name,
			Description: body.Description,
			Category:    category,
			Brand:       body.Brand,
			Price:       price,
			MRP:         mrp,
			StockQty:    body.StockQty,
			IsFeatured:  body.IsFeatured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type productUpdateBody struct {
	Slug        *string `json:"slug,omitempty" validate:"omitempty,max=160"`
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Category    *string `json:"category,omitempty"`
	Brand       *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	Price       *string `json:"price,omitempty"`
	MRP         *string `json:"mrp,omitempty"`
	IsFeatured  *bool   `json:"is_featured,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AdminProductUpdate applies a partial update; absent fields keep their
// current values.
func AdminProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body productUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Slug:        body.Slug,
			Name:        body.Name,
			Description: body.Description,
			Brand:       body.Brand,
			IsFeatured:  body.IsFeatured,
			IsActive:    body.IsActive,
		}
		if body.Category != nil {
			category, err := enums.ParseProductCategory(*body.Category)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			input.Category = &category
		}
		if body.Price != nil {
			price, err := decimal.NewFromString(*body.Price)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			input.Price = &price
		}
		if body.MRP != nil {
			mrp, err := decimal.NewFromString(*body.MRP)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mrp"))
				return
			}
			input.MRP = &mrp
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type stockAdjustBody struct {
	Delta int `json:"delta" validate:"required"`
}

// AdminProductStock applies a signed stock delta.
func AdminProductStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stockAdjustBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), catalog.StockAdjustInput{
			ProductID: productID,
			Delta:     body.Delta,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
