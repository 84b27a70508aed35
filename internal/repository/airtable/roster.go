package airtable

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"

	"github.com/mehanizm/airtable"
)

// Roster table fields. Verified is a Yes/No text field.
const (
	fieldOrderID  = "OrderID"
	fieldAmount   = "Amount"
	fieldName     = "Name"
	fieldPhone    = "Phone"
	fieldEmail    = "Email"
	fieldDate     = "Date"
	fieldVerified = "Verified"

	verifiedYes = "Yes"
	verifiedNo  = "No"

	rosterPageSize = 100
)

type rosterRepository struct {
	table *airtable.Table
	now   func() time.Time
}

// NewRosterRepository connects to the roster table baseID/tableName. An empty
// baseURL keeps the public Airtable endpoint.
func NewRosterRepository(apiKey, baseID, tableName, baseURL string) (repository.RosterRepository, error) {
	client := airtable.NewClient(apiKey)
	if baseURL != "" {
		if err := client.SetBaseURL(baseURL); err != nil {
			return nil, fmt.Errorf("invalid airtable base url: %w", err)
		}
	}
	return &rosterRepository{table: client.GetTable(baseID, tableName), now: time.Now}, nil
}

func rosterFields(e *domain.RosterEntry) map[string]any {
	verified := verifiedNo
	if e.Verified {
		verified = verifiedYes
	}
	fields := map[string]any{
		fieldOrderID:  e.OrderID,
		fieldName:     e.Name,
		fieldPhone:    e.Phone,
		fieldEmail:    e.Email,
		fieldDate:     e.Date.UTC().Format(time.RFC3339),
		fieldVerified: verified,
	}
	if e.Amount > 0 {
		fields[fieldAmount] = e.Amount
	}
	return fields
}

func toRosterEntry(r *airtable.Record) domain.RosterEntry {
	e := domain.RosterEntry{ID: r.ID}
	e.OrderID, _ = r.Fields[fieldOrderID].(string)
	e.Name, _ = r.Fields[fieldName].(string)
	e.Phone, _ = r.Fields[fieldPhone].(string)
	e.Email, _ = r.Fields[fieldEmail].(string)

	switch v := r.Fields[fieldAmount].(type) {
	case float64:
		e.Amount = v
	case string:
		e.Amount, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := r.Fields[fieldDate].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			e.Date = t
		} else if t, err := time.Parse("2006-01-02", v); err == nil {
			e.Date = t
		}
	}
	switch v := r.Fields[fieldVerified].(type) {
	case string:
		e.Verified = v == verifiedYes
	case bool:
		e.Verified = v
	}
	return e
}

// Add writes one roster row. A zero Date is stamped with the current time.
func (r *rosterRepository) Add(ctx context.Context, e *domain.RosterEntry) error {
	if e.Date.IsZero() {
		e.Date = r.now().UTC()
	}
	logger.ExternalServiceCall("airtable", "AddRoster", "orderID", e.OrderID)

	saved, err := r.table.AddRecords(&airtable.Records{
		Records: []*airtable.Record{{Fields: rosterFields(e)}},
	})
	logger.ExternalServiceResult("airtable", "AddRoster", err)
	if err != nil {
		return fmt.Errorf("%w: airtable write: %v", domain.ErrStoreUnavailable, err)
	}
	if saved != nil && len(saved.Records) > 0 {
		e.ID = saved.Records[0].ID
	}
	return nil
}

// List returns up to limit rows ordered by Date, oldest first.
func (r *rosterRepository) List(ctx context.Context, limit int) ([]domain.RosterEntry, error) {
	if limit <= 0 || limit > rosterPageSize {
		limit = rosterPageSize
	}
	records, err := r.table.GetRecords().
		WithSort(struct {
			FieldName string
			Direction string
		}{FieldName: fieldDate, Direction: "asc"}).
		MaxRecords(limit).
		Do()
	if err != nil {
		logger.ExternalServiceResult("airtable", "ListRoster", err)
		return nil, fmt.Errorf("%w: airtable list: %v", domain.ErrStoreUnavailable, err)
	}
	entries := make([]domain.RosterEntry, 0, len(records.Records))
	for _, rec := range records.Records {
		entries = append(entries, toRosterEntry(rec))
	}
	return entries, nil
}
