package reports

import (
	"context"
	"time"

	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/tenantpath"
	"github.com/grampanchayat/villagestats_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("villagestats/reports")

// VillageSummary joins the four statistics tables for one village and year.
// Missing rows are zero-valued, never nil.
type VillageSummary struct {
	Village        models.Village               `json:"village"`
	Demographics   models.Demographics          `json:"demographics"`
	Breakdowns     []models.PopulationBreakdown `json:"breakdowns"`
	Groups         models.VillageGroups         `json:"groups"`
	Infrastructure models.VillageInfrastructure `json:"infrastructure"`
}

// Summarize returns one entry per registered village, in registry order.
// A year without data yields all-zero entries, not an empty list.
func Summarize(ctx context.Context, year int) ([]*VillageSummary, error) {
	if err := models.ValidateYear(year); err != nil {
		return nil, err
	}
	tenantId, err := tenantpath.TenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "reports.Summarize")
	span.SetAttributes(attribute.String("tenant.id", tenantId), attribute.Int("year", year))
	defer span.End()

	started := time.Now()
	defer func() {
		summaryDuration.Observe(time.Since(started).Seconds())
		logSlowReport(ctx, "VillageSummary", started, map[string]any{"year": year})
	}()

	cacheKey := utils.SummaryCacheKey(tenantId, year)
	if summaryCacheUsable() {
		var cached []*VillageSummary
		if ok, err := cacheGet(ctx, cacheKey, &cached); err == nil && ok {
			summaryCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		} else if err != nil {
			config.LogError(config.GetLogger(), "Reports", "Summarize", "read cached summary", cacheKey, err)
		}
		summaryCache.WithLabelValues("miss").Inc()
	}

	var (
		villages       []*models.Village
		demographics   []*models.Demographics
		breakdowns     []*models.PopulationBreakdown
		groups         []*models.VillageGroups
		infrastructure []*models.VillageInfrastructure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		villages, err = models.ListVillages(gctx)
		return err
	})
	g.Go(func() (err error) {
		demographics, err = models.GetDemographicsByYear(gctx, year)
		return err
	})
	g.Go(func() (err error) {
		breakdowns, err = models.GetPopulationBreakdownsByYear(gctx, year)
		return err
	})
	g.Go(func() (err error) {
		groups, err = models.GetVillageGroupsByYear(gctx, year)
		return err
	})
	g.Go(func() (err error) {
		infrastructure, err = models.GetVillageInfrastructureByYear(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	summaries := joinSummaries(year, villages, demographics, breakdowns, groups, infrastructure)

	if summaryCacheUsable() {
		if err := cacheSet(ctx, tenantId, cacheKey, summaries); err != nil {
			config.LogError(config.GetLogger(), "Reports", "Summarize", "cache summary", cacheKey, err)
		}
	}
	return summaries, nil
}

func joinSummaries(
	year int,
	villages []*models.Village,
	demographics []*models.Demographics,
	breakdowns []*models.PopulationBreakdown,
	groups []*models.VillageGroups,
	infrastructure []*models.VillageInfrastructure,
) []*VillageSummary {
	demoBy := make(map[string]*models.Demographics, len(demographics))
	for _, d := range demographics {
		if _, ok := demoBy[d.VillageId]; !ok {
			demoBy[d.VillageId] = d
		}
	}
	groupsBy := make(map[string]*models.VillageGroups, len(groups))
	for _, gr := range groups {
		if _, ok := groupsBy[gr.VillageId]; !ok {
			groupsBy[gr.VillageId] = gr
		}
	}
	infraBy := make(map[string]*models.VillageInfrastructure, len(infrastructure))
	for _, in := range infrastructure {
		if _, ok := infraBy[in.VillageId]; !ok {
			infraBy[in.VillageId] = in
		}
	}
	type categoryKey struct {
		villageId string
		category  models.Category
	}
	breakdownBy := make(map[categoryKey]*models.PopulationBreakdown, len(breakdowns))
	for _, b := range breakdowns {
		k := categoryKey{b.VillageId, b.Category}
		if _, ok := breakdownBy[k]; !ok {
			breakdownBy[k] = b
		}
	}

	summaries := make([]*VillageSummary, 0, len(villages))
	for _, v := range villages {
		s := &VillageSummary{
			Village:        *v,
			Demographics:   models.Demographics{VillageId: v.ID, Year: year},
			Groups:         models.VillageGroups{VillageId: v.ID, Year: year},
			Infrastructure: models.VillageInfrastructure{VillageId: v.ID, Year: year},
			Breakdowns:     make([]models.PopulationBreakdown, 0, len(models.Categories)),
		}
		if d, ok := demoBy[v.ID]; ok {
			s.Demographics = *d
		}
		if gr, ok := groupsBy[v.ID]; ok {
			s.Groups = *gr
		}
		if in, ok := infraBy[v.ID]; ok {
			s.Infrastructure = *in
		}
		for _, c := range models.Categories {
			if b, ok := breakdownBy[categoryKey{v.ID, c}]; ok {
				s.Breakdowns = append(s.Breakdowns, *b)
				continue
			}
			s.Breakdowns = append(s.Breakdowns, models.PopulationBreakdown{VillageId: v.ID, Year: year, Category: c})
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// HasData reports whether any figure in summaries is non-zero.
func HasData(summaries []*VillageSummary) bool {
	for _, s := range summaries {
		d, g, in := s.Demographics, s.Groups, s.Infrastructure
		if d.TotalPopulation+d.MalePopulation+d.FemalePopulation > 0 || g.Total() > 0 {
			return true
		}
		for _, b := range s.Breakdowns {
			if b.MaleCount+b.FemaleCount > 0 {
				return true
			}
		}
		if in.PrivateWells+in.PublicWells+in.NitScheme+in.Handpumps+in.WaterFilterPlant+in.PrivatePonds > 0 ||
			in.Families+in.OldTapConnections+in.NewTapConnections+in.PrivateWellsForTap+in.PendingTapConnections > 0 ||
			in.WaterTankCapacity != "" {
			return true
		}
	}
	return false
}
