// Package airtable keeps the manual payment-channel directory in an Airtable
// table with the fields Provider and Details.
package airtable

import (
	"context"
	"fmt"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"

	"github.com/mehanizm/airtable"
)

const (
	fieldProvider = "Provider"
	fieldDetails  = "Details"

	listLimit = 50
)

type paymentMethodRepository struct {
	table *airtable.Table
}

// NewPaymentMethodRepository connects to baseID/tableName. An empty baseURL
// keeps the public Airtable endpoint.
func NewPaymentMethodRepository(apiKey, baseID, tableName, baseURL string) (repository.PaymentMethodRepository, error) {
	client := airtable.NewClient(apiKey)
	if baseURL != "" {
		if err := client.SetBaseURL(baseURL); err != nil {
			return nil, fmt.Errorf("invalid airtable base url: %w", err)
		}
	}
	return &paymentMethodRepository{table: client.GetTable(baseID, tableName)}, nil
}

func toPaymentMethod(r *airtable.Record) domain.PaymentMethod {
	pm := domain.PaymentMethod{ID: r.ID}
	if v, ok := r.Fields[fieldProvider].(string); ok {
		pm.Provider = v
	}
	if v, ok := r.Fields[fieldDetails].(string); ok {
		pm.Details = v
	}
	return pm
}

// formulaString quotes s for an Airtable formula literal.
func formulaString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (r *paymentMethodRepository) Upsert(ctx context.Context, provider, details string) (*domain.PaymentMethod, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !domain.IsAllowedPaymentProvider(provider) {
		return nil, fmt.Errorf("%w: unsupported provider %q", domain.ErrInvalidInput, provider)
	}
	logger.ExternalServiceCall("airtable", "Upsert", "provider", provider)

	existing, err := r.table.GetRecords().
		WithFilterFormula(fmt.Sprintf("{%s} = %s", fieldProvider, formulaString(provider))).
		MaxRecords(1).
		Do()
	if err != nil {
		logger.ExternalServiceResult("airtable", "Upsert", err)
		return nil, fmt.Errorf("%w: airtable lookup: %v", domain.ErrStoreUnavailable, err)
	}

	fields := map[string]any{fieldProvider: provider, fieldDetails: details}
	var saved *airtable.Records
	if existing != nil && len(existing.Records) > 0 {
		saved, err = r.table.UpdateRecordsPartial(&airtable.Records{
			Records: []*airtable.Record{{ID: existing.Records[0].ID, Fields: fields}},
		})
	} else {
		saved, err = r.table.AddRecords(&airtable.Records{
			Records: []*airtable.Record{{Fields: fields}},
		})
	}
	logger.ExternalServiceResult("airtable", "Upsert", err)
	if err != nil {
		return nil, fmt.Errorf("%w: airtable write: %v", domain.ErrStoreUnavailable, err)
	}

	pm := domain.PaymentMethod{Provider: provider, Details: details}
	if saved != nil && len(saved.Records) > 0 {
		pm.ID = saved.Records[0].ID
	}
	return &pm, nil
}

func (r *paymentMethodRepository) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	records, err := r.table.GetRecords().MaxRecords(listLimit).Do()
	if err != nil {
		logger.ExternalServiceResult("airtable", "List", err)
		return nil, fmt.Errorf("%w: airtable list: %v", domain.ErrStoreUnavailable, err)
	}
	methods := make([]domain.PaymentMethod, 0, len(records.Records))
	for _, rec := range records.Records {
		methods = append(methods, toPaymentMethod(rec))
	}
	return methods, nil
}
