package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// Sort keys accepted on listings. Each backend maps them to its own
// column or field names.
const (
	SortByName      = "name"
	SortByPrice     = "price"
	SortByStock     = "stock"
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
)

// ParseSortOrder reads "asc"/"desc" in any case; anything else yields "".
func ParseSortOrder(s string) SortOrder {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SortOrderAsc):
		return SortOrderAsc
	case string(SortOrderDesc):
		return SortOrderDesc
	}
	return ""
}

// OrDefault returns o, or def when o is not a valid direction
func (o SortOrder) OrDefault(def SortOrder) SortOrder {
	if o != SortOrderAsc && o != SortOrderDesc {
		return def
	}
	return o
}

// NormalizeCategorySort maps a client sort key onto a supported one, name by default
func NormalizeCategorySort(sortBy string) string {
	switch sortBy {
	case SortByCreatedAt, SortByUpdatedAt:
		return sortBy
	}
	return SortByName
}

// NormalizeProductSort maps a client sort key onto a supported one, createdAt by default
func NormalizeProductSort(sortBy string) string {
	switch sortBy {
	case SortByName, SortByPrice, SortByStock:
		return sortBy
	}
	return SortByCreatedAt
}

// isUniqueViolation reports a postgres unique_violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
