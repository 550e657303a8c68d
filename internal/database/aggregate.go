// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/authpulse/internal/dataset"
)

// dimensionExprs maps each dimension to the SQL producing its group key.
// Only these expressions are ever interpolated into queries.
var dimensionExprs = map[dataset.Dimension]string{
	dataset.DimState:         "state",
	dataset.DimDistrict:      "district",
	dataset.DimAgeGroup:      "age_group",
	dataset.DimGender:        "gender",
	dataset.DimBiometricType: "biometric_type",
	dataset.DimDeviceModel:   "device_model",
	dataset.DimFailureReason: "COALESCE(failure_reason, '')",
	dataset.DimMonth:         "CAST(month(auth_timestamp) AS VARCHAR)",
	dataset.DimPeriod:        "strftime(auth_timestamp, '%Y-%m')",
}

const aggregateColumns = `COUNT(*),
	CAST(COALESCE(SUM(CASE WHEN auth_result = 'failure' THEN 1 ELSE 0 END), 0) AS BIGINT),
	CAST(COALESCE(SUM(attempt_count), 0) AS BIGINT)`

// Len returns the number of imported rows.
func (db *DB) Len(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM auth_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count auth_events: %w", err)
	}
	return n, nil
}

// Aggregate groups the rows passing filter by dims. With no dims it returns
// exactly one group covering the whole filtered set.
func (db *DB) Aggregate(ctx context.Context, filter dataset.Filter, dims ...dataset.Dimension) ([]dataset.Group, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := dataset.ValidateDimensions(dims); err != nil {
		return nil, err
	}

	query, args := buildAggregateQuery(filter, dims)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate query: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var groups []dataset.Group
	for rows.Next() {
		g := dataset.Group{Keys: make([]string, len(dims))}
		dest := make([]any, 0, len(dims)+3)
		for i := range g.Keys {
			dest = append(dest, &g.Keys[i])
		}
		dest = append(dest, &g.Total, &g.Failures, &g.Attempts)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	if len(dims) == 0 {
		if len(groups) == 0 {
			groups = []dataset.Group{{}}
		}
		groups[0].Keys = nil
		return groups, nil
	}
	dataset.SortGroups(groups, dims)
	return groups, nil
}

func buildAggregateQuery(filter dataset.Filter, dims []dataset.Dimension) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, d := range dims {
		fmt.Fprintf(&b, "%s AS k%d, ", dimensionExprs[d], i)
	}
	b.WriteString(aggregateColumns)
	b.WriteString("\nFROM auth_events")

	where, args := buildWhereClause(filter)
	if where != "" {
		b.WriteString("\nWHERE ")
		b.WriteString(where)
	}

	if len(dims) > 0 {
		positions := make([]string, len(dims))
		for i := range dims {
			positions[i] = fmt.Sprintf("%d", i+1)
		}
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(positions, ", "))
	}
	return b.String(), args
}

// buildWhereClause renders filter as AND-ed conditions with bound values.
// Dimensions are emitted in sorted order so equal filters give equal SQL.
func buildWhereClause(filter dataset.Filter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Result != "" {
		clauses = append(clauses, "auth_result = ?")
		args = append(args, filter.Result)
	}

	dims := make([]string, 0, len(filter.Equals))
	for d := range filter.Equals {
		dims = append(dims, string(d))
	}
	sort.Strings(dims)
	for _, name := range dims {
		d := dataset.Dimension(name)
		values := filter.Equals[d]
		if len(values) == 0 {
			clauses = append(clauses, "FALSE")
			continue
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", dimensionExprs[d], placeholders))
		for _, v := range values {
			args = append(args, v)
		}
	}
	return strings.Join(clauses, " AND "), args
}
