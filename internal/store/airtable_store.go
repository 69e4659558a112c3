package store

import (
	"context"
	"fmt"

	"github.com/jonathan/homematch/internal/airtable"
	"github.com/jonathan/homematch/internal/types"
)

// Default table names in the CRM base.
const (
	DefaultBuyersTable     = "Buyers"
	DefaultPropertiesTable = "Properties"
	DefaultMatchesTable    = "Matches"
)

// Tables names the three tables an AirtableStore reads and writes.
type Tables struct {
	Buyers     string
	Properties string
	Matches    string
}

// DefaultTables returns the standard table names.
func DefaultTables() Tables {
	return Tables{
		Buyers:     DefaultBuyersTable,
		Properties: DefaultPropertiesTable,
		Matches:    DefaultMatchesTable,
	}
}

// AirtableStore implements Store on top of the Airtable records API.
type AirtableStore struct {
	client *airtable.Client
	tables Tables
}

// NewAirtableStore wires a Store to an Airtable base.
func NewAirtableStore(client *airtable.Client, tables Tables) *AirtableStore {
	if tables.Buyers == "" {
		tables.Buyers = DefaultBuyersTable
	}
	if tables.Properties == "" {
		tables.Properties = DefaultPropertiesTable
	}
	if tables.Matches == "" {
		tables.Matches = DefaultMatchesTable
	}
	return &AirtableStore{client: client, tables: tables}
}

// ListBuyers implements Store.
func (s *AirtableStore) ListBuyers(ctx context.Context) ([]types.BuyerPreferences, error) {
	records, err := s.client.ListRecords(ctx, s.tables.Buyers)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyers: %w", err)
	}
	buyers := make([]types.BuyerPreferences, 0, len(records))
	for _, rec := range records {
		buyers = append(buyers, BuyerFromFields(rec.ID, rec.Fields))
	}
	return buyers, nil
}

// ListProperties implements Store.
func (s *AirtableStore) ListProperties(ctx context.Context) ([]types.PropertyAttributes, error) {
	records, err := s.client.ListRecords(ctx, s.tables.Properties)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	properties := make([]types.PropertyAttributes, 0, len(records))
	for _, rec := range records {
		properties = append(properties, PropertyFromFields(rec.ID, rec.Fields))
	}
	return properties, nil
}

// ListMatches implements Store.
func (s *AirtableStore) ListMatches(ctx context.Context) ([]types.MatchRecord, error) {
	records, err := s.client.ListRecords(ctx, s.tables.Matches)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	matches := make([]types.MatchRecord, 0, len(records))
	for _, rec := range records {
		matches = append(matches, MatchFromFields(rec.ID, rec.Fields))
	}
	return matches, nil
}

// CreateMatches implements Store.
func (s *AirtableStore) CreateMatches(ctx context.Context, records []types.MatchRecord) ([]types.MatchRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	fields := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		fields = append(fields, MatchToFields(rec))
	}
	created, err := s.client.CreateRecords(ctx, s.tables.Matches, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}
	out := make([]types.MatchRecord, 0, len(created))
	for _, rec := range created {
		out = append(out, MatchFromFields(rec.ID, rec.Fields))
	}
	return out, nil
}

// UpdateMatches implements Store.
func (s *AirtableStore) UpdateMatches(ctx context.Context, records []types.MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	updates := make([]airtable.RecordUpdate, 0, len(records))
	for _, rec := range records {
		updates = append(updates, airtable.RecordUpdate{
			ID:     rec.ID,
			Fields: matchUpdateFields(rec),
		})
	}
	if _, err := s.client.UpdateRecords(ctx, s.tables.Matches, updates); err != nil {
		return fmt.Errorf("failed to update matches: %w", err)
	}
	return nil
}

// DeleteMatches implements Store.
func (s *AirtableStore) DeleteMatches(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.DeleteRecords(ctx, s.tables.Matches, ids); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	return nil
}

// ListMatchIDs implements Store.
func (s *AirtableStore) ListMatchIDs(ctx context.Context) ([]string, error) {
	records, err := s.client.ListRecords(ctx, s.tables.Matches)
	if err != nil {
		return nil, fmt.Errorf("failed to list match ids: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}
