package models

import (
	"context"
	"sort"
)

const AutoSyncSource = "Auto-calculated from Category-wise data"

// SyncDemographicsFromBreakdowns rewrites the demographics of each target from
// the breakdown rows currently stored for it. It recomputes rather than
// increments, so running it again gives the same result.
func SyncDemographicsFromBreakdowns(ctx context.Context, targets []VillageYear) (*UpsertResult, error) {
	if len(targets) == 0 {
		return &UpsertResult{Table: demographicsTable.name}, nil
	}

	byYear := map[int][]string{}
	for _, t := range targets {
		byYear[t.Year] = append(byYear[t.Year], t.VillageId)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	records := make([]*Demographics, 0, len(targets))
	for _, year := range years {
		rows, err := breakdownTable.getByYear(ctx, year)
		if err != nil {
			return nil, err
		}
		male := map[string]int{}
		female := map[string]int{}
		for _, r := range rows {
			male[r.VillageId] += r.MaleCount
			female[r.VillageId] += r.FemaleCount
		}
		for _, villageId := range byYear[year] {
			records = append(records, &Demographics{
				VillageId:        villageId,
				Year:             year,
				MalePopulation:   male[villageId],
				FemalePopulation: female[villageId],
				TotalPopulation:  male[villageId] + female[villageId],
				Source:           AutoSyncSource,
			})
		}
	}
	return demographicsTable.bulkUpsert(ctx, records)
}
