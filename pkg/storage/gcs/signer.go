package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type serviceAccountInfo struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
}

// SignedURL produces a signed PUT URL so browsers upload straight to
// the bucket without routing bytes through the API.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", errors.New("content type is required")
	}
	return c.signURL(http.MethodPut, bucket, object, contentType, expires)
}

// SignedReadURL produces a signed GET URL for private objects.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	return c.signURL(http.MethodGet, bucket, object, "", expires)
}

func (c *Client) signURL(verb, bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return "", errors.New("url signing requires service account credentials")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if object == "" {
		return "", errors.New("object is required")
	}
	if expires <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expiry := time.Now().Add(expires).Unix()
	resource := "/" + bucket + "/" + object

	stringToSign := strings.Join([]string{
		verb,
		"", // Content-MD5 unused
		contentType,
		strconv.FormatInt(expiry, 10),
		resource,
	}, "\n")

	hash := sha256.Sum256([]byte(stringToSign))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	query.Set("Expires", strconv.FormatInt(expiry, 10))
	query.Set("Signature", base64.StdEncoding.EncodeToString(signature))

	return "https://storage.googleapis.com" + resource + "?" + query.Encode(), nil
}

// escapeObjectPath escapes each path segment while keeping separators.
func escapeObjectPath(object string) string {
	segments := strings.Split(object, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
