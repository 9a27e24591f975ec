package reports

import (
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/shopspring/decimal"
)

type DemographicsTotals struct {
	Total  int `json:"total"`
	Male   int `json:"male"`
	Female int `json:"female"`
}

type CategoryTotal struct {
	Category models.Category `json:"category"`
	Male     int             `json:"male"`
	Female   int             `json:"female"`
	Total    int             `json:"total"`
	// Share is the category's percentage of all categorised population.
	Share decimal.Decimal `json:"share"`
}

type GroupTotals struct {
	MahilaBachatGat int `json:"mahilaBachatGat"`
	YuvakMandal     int `json:"yuvakMandal"`
	KisanGat        int `json:"kisanGat"`
	Other           int `json:"other"`
	Total           int `json:"total"`
}

// WaterSourceRow is one source type across all villages. Text rows carry
// free-text cells and have no total.
type WaterSourceRow struct {
	Label  string   `json:"label"`
	Values []int    `json:"values,omitempty"`
	Texts  []string `json:"texts,omitempty"`
	Total  int      `json:"total"`
	IsText bool     `json:"isText"`
}

type TapTotals struct {
	Families     int `json:"families"`
	Old          int `json:"old"`
	New          int `json:"new"`
	Total        int `json:"total"`
	PrivateWells int `json:"privateWells"`
	Pending      int `json:"pending"`
}

// Totals bundles every TOTAL row of a report.
type Totals struct {
	Demographics DemographicsTotals `json:"demographics"`
	Categories   []CategoryTotal    `json:"categories"`
	Groups       GroupTotals        `json:"groups"`
	WaterSources []WaterSourceRow   `json:"waterSources"`
	Taps         TapTotals          `json:"taps"`
}

func ComputeTotals(summaries []*VillageSummary) Totals {
	return Totals{
		Demographics: SumDemographics(summaries),
		Categories:   SumCategories(summaries),
		Groups:       SumGroups(summaries),
		WaterSources: WaterSourceRows(summaries),
		Taps:         SumTaps(summaries),
	}
}

func SumDemographics(summaries []*VillageSummary) DemographicsTotals {
	var t DemographicsTotals
	for _, s := range summaries {
		t.Total += s.Demographics.TotalPopulation
		t.Male += s.Demographics.MalePopulation
		t.Female += s.Demographics.FemalePopulation
	}
	return t
}

// breakdownFor returns the village's row for category, zero when absent.
func breakdownFor(s *VillageSummary, c models.Category) models.PopulationBreakdown {
	for _, b := range s.Breakdowns {
		if b.Category == c {
			return b
		}
	}
	return models.PopulationBreakdown{Category: c}
}

func SumCategories(summaries []*VillageSummary) []CategoryTotal {
	out := make([]CategoryTotal, len(models.Categories))
	grand := 0
	for i, c := range models.Categories {
		out[i].Category = c
		for _, s := range summaries {
			b := breakdownFor(s, c)
			out[i].Male += b.MaleCount
			out[i].Female += b.FemaleCount
		}
		out[i].Total = out[i].Male + out[i].Female
		grand += out[i].Total
	}
	for i := range out {
		out[i].Share = sharePercent(out[i].Total, grand)
	}
	return out
}

func sharePercent(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(whole)), 2)
}

func SumGroups(summaries []*VillageSummary) GroupTotals {
	var t GroupTotals
	for _, s := range summaries {
		t.MahilaBachatGat += s.Groups.MahilaBachatGatCount
		t.YuvakMandal += s.Groups.YuvakMandalCount
		t.KisanGat += s.Groups.KisanGatCount
		t.Other += s.Groups.OtherGroupCount
	}
	t.Total = t.MahilaBachatGat + t.YuvakMandal + t.KisanGat + t.Other
	return t
}

var waterSources = []struct {
	label string
	value func(*models.VillageInfrastructure) int
}{
	{"Private Wells", func(v *models.VillageInfrastructure) int { return v.PrivateWells }},
	{"Public Wells", func(v *models.VillageInfrastructure) int { return v.PublicWells }},
	{"NIT Scheme", func(v *models.VillageInfrastructure) int { return v.NitScheme }},
	{"Handpumps", func(v *models.VillageInfrastructure) int { return v.Handpumps }},
	{"Water Filter Plant", func(v *models.VillageInfrastructure) int { return v.WaterFilterPlant }},
	{"Private Ponds", func(v *models.VillageInfrastructure) int { return v.PrivatePonds }},
}

// WaterSourceRows builds the transposed water table: six counted sources
// and the free-text tank capacity, one column per village.
func WaterSourceRows(summaries []*VillageSummary) []WaterSourceRow {
	rows := make([]WaterSourceRow, 0, len(waterSources)+1)
	for _, src := range waterSources {
		row := WaterSourceRow{Label: src.label, Values: make([]int, len(summaries))}
		for i, s := range summaries {
			row.Values[i] = src.value(&s.Infrastructure)
			row.Total += row.Values[i]
		}
		rows = append(rows, row)
	}
	tank := WaterSourceRow{Label: "Water Tank Capacity", IsText: true, Texts: make([]string, len(summaries))}
	for i, s := range summaries {
		tank.Texts[i] = s.Infrastructure.WaterTankCapacity
	}
	return append(rows, tank)
}

func SumTaps(summaries []*VillageSummary) TapTotals {
	var t TapTotals
	for _, s := range summaries {
		in := s.Infrastructure
		t.Families += in.Families
		t.Old += in.OldTapConnections
		t.New += in.NewTapConnections
		t.Total += in.TotalTapConnections
		t.PrivateWells += in.PrivateWellsForTap
		t.Pending += in.PendingTapConnections
	}
	return t
}
