package handler

import (
	"strings"

	"saldo/pkg/validation"
)

// SubmitQueryRequest is the body of POST /api/queries. Document and
// benefit may be formatted; only their digits identify the benefit.
type SubmitQueryRequest struct {
	Document string `json:"document" validate:"required,notblank,hasdigits,max=32"`
	Benefit  string `json:"benefit" validate:"required,notblank,hasdigits,max=32"`
	Login    string `json:"login" validate:"required,notblank,max=128"`
}

func (r *SubmitQueryRequest) Normalize() {
	r.Document = strings.TrimSpace(r.Document)
	r.Benefit = strings.TrimSpace(r.Benefit)
	r.Login = strings.TrimSpace(r.Login)
}

func (r *SubmitQueryRequest) Validate() error {
	return validation.Validate(r)
}

// LatestQueryRequest is built from the query string of GET /api/queries/latest.
type LatestQueryRequest struct {
	Document string `validate:"required,notblank,hasdigits,max=32"`
	Benefit  string `validate:"required,notblank,hasdigits,max=32"`
	Login    string `validate:"required,notblank,max=128"`
}

func (r *LatestQueryRequest) Normalize() {
	r.Document = strings.TrimSpace(r.Document)
	r.Benefit = strings.TrimSpace(r.Benefit)
	r.Login = strings.TrimSpace(r.Login)
}

func (r *LatestQueryRequest) Validate() error {
	return validation.Validate(r)
}

// CreditSummaryRequest carries the login path parameter.
type CreditSummaryRequest struct {
	Login string `validate:"required,notblank,max=128"`
}

func (r *CreditSummaryRequest) Normalize() {
	r.Login = strings.TrimSpace(r.Login)
}

func (r *CreditSummaryRequest) Validate() error {
	return validation.Validate(r)
}
