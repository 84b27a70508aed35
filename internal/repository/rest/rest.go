// Package rest implements the record store against a Supabase project
// through its PostgREST endpoint.
package rest

import (
	"fmt"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/repository"

	"github.com/supabase-community/postgrest-go"
)

const (
	tableMembers       = "members"
	tablePayments      = "payments"
	tableVerifications = "verifications"

	returnRepresentation = "representation"
)

// NewClient builds a PostgREST client authorised with the service role key.
func NewClient(restURL, serviceRoleKey, schema string) *postgrest.Client {
	return postgrest.NewClient(restURL, schema, map[string]string{
		"apikey":        serviceRoleKey,
		"Authorization": "Bearer " + serviceRoleKey,
	})
}

func NewStore(client *postgrest.Client) *repository.Store {
	return &repository.Store{
		Members:       NewMemberRepository(client),
		Payments:      NewPaymentRepository(client),
		Verifications: NewVerificationRepository(client),
	}
}

// translate maps PostgREST failures onto domain errors. The client reports
// database errors as "(<sqlstate>) <message>".
func translate(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "(22P02)") {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func hasCode(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), "("+code+")")
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
