// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package crosscheck compares procfs readings with an independent reference
// implementation and classifies how far they disagree.
package crosscheck

import (
	"math"
	"sort"
)

// ValidationStatus indicates the confidence level of a cross-checked metric
type ValidationStatus string

const (
	StatusValid    ValidationStatus = "valid"
	StatusSuspect  ValidationStatus = "suspect"
	StatusConflict ValidationStatus = "conflict"
)

const (
	DefaultSuspectThreshold  = 5.0
	DefaultConflictThreshold = 20.0
)

// Source is one reading of a metric
type Source struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// ValidationResult holds the cross-check outcome for a metric
type ValidationResult struct {
	Metric       string           `json:"metric"`
	Sources      []Source         `json:"sources"`
	Consensus    float64          `json:"consensus"`
	MaxDeviation float64          `json:"max_deviation"` // percent of Consensus
	Status       ValidationStatus `json:"status"`
}

// Validator classifies readings by their largest deviation from the median
type Validator struct {
	SuspectThreshold  float64 // deviation % to mark suspect
	ConflictThreshold float64 // deviation % to mark conflict
}

func NewValidator() *Validator {
	return &Validator{
		SuspectThreshold:  DefaultSuspectThreshold,
		ConflictThreshold: DefaultConflictThreshold,
	}
}

// CrossCheck compares the sources of metric. The consensus is the median; a single
// source is always valid.
func (v *Validator) CrossCheck(metric string, sources []Source) ValidationResult {
	result := ValidationResult{
		Metric:  metric,
		Sources: sources,
		Status:  StatusValid,
	}

	switch len(sources) {
	case 0:
		return result
	case 1:
		result.Consensus = sources[0].Value
		return result
	}

	values := make([]float64, len(sources))
	for i, s := range sources {
		values[i] = s.Value
	}
	sort.Float64s(values)
	result.Consensus = median(values)

	for _, val := range values {
		if result.Consensus == 0 {
			if val != 0 {
				result.MaxDeviation = 100.0
			}
			continue
		}
		dev := math.Abs(val-result.Consensus) / math.Abs(result.Consensus) * 100
		if dev > result.MaxDeviation {
			result.MaxDeviation = dev
		}
	}

	switch {
	case result.MaxDeviation >= v.ConflictThreshold:
		result.Status = StatusConflict
	case result.MaxDeviation >= v.SuspectThreshold:
		result.Status = StatusSuspect
	}

	return result
}

// median of sorted values
func median(values []float64) float64 {
	n := len(values)
	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}

// Summary counts results per status
func Summary(results []ValidationResult) map[ValidationStatus]int {
	counts := map[ValidationStatus]int{
		StatusValid:    0,
		StatusSuspect:  0,
		StatusConflict: 0,
	}
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
