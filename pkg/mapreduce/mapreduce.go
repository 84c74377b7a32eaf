// Package mapreduce tallies record values across a run.
package mapreduce

import "github.com/dtnitsch/booking-scraper/models"

// Map counts the non-empty values of column across one batch of records.
func Map(records []models.PropertyRecord, column int) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		if v := r.Row()[column]; v != "" {
			counts[v]++
		}
	}
	return counts
}

// Reduce aggregates a slice of count maps into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for key, count := range counts {
			finalResults[key] += count
		}
	}

	return finalResults
}

// Tally maps records in batches of size and reduces the results.
func Tally(records []models.PropertyRecord, column, size int) map[string]int {
	if size <= 0 {
		size = len(records)
	}
	var parts []map[string]int
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		parts = append(parts, Map(records[start:end], column))
	}
	return Reduce(parts)
}
