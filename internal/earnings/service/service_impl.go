package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/internal/earnings/aggregate"
	"github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/earnings/format"
	"github.com/smallbiznis/royalty/internal/earnings/period"
	"github.com/smallbiznis/royalty/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Source   domain.RecordSource
	Log      *zap.Logger
	Clock    clock.Clock
	Config   config.Config
	Earnings *config.EarningsConfigHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	source   domain.RecordSource
	log      *zap.Logger
	clock    clock.Clock
	location *time.Location
	earnings *config.EarningsConfigHolder
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(p Params) domain.Service {
	log := p.Log.Named("earnings.service")
	location := time.UTC
	if tz := strings.TrimSpace(p.Config.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Warn("unknown earnings timezone, using UTC", zap.String("timezone", tz), zap.Error(err))
		} else {
			location = loc
		}
	}

	return &Service{
		source:   p.Source,
		log:      log,
		clock:    p.Clock,
		location: location,
		earnings: p.Earnings,
		metrics:  p.Metrics,
		tracer:   otel.Tracer("royalty/earnings"),
	}
}

func (s *Service) GetRevenueSummary(ctx context.Context, req domain.SummaryRequest) (domain.SummaryResponse, error) {
	started := time.Now()
	req, err := normalizeRequest(req)
	if err != nil {
		return domain.SummaryResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "earnings.GetRevenueSummary", trace.WithAttributes(
		attribute.String("creator_id", req.CreatorID),
		attribute.String("period", string(req.Period)),
	))
	defer span.End()

	now := s.now()
	interval := period.Resolve(period.Selector{Period: req.Period, Custom: req.Custom}, now)
	resp := domain.SummaryResponse{
		CreatorID: req.CreatorID,
		Period:    req.Period,
		Interval:  interval,
	}
	if req.CreatorID == "" {
		return resp, nil
	}

	enrollments, ok := s.loadEnrollments(ctx)
	summary, degraded := s.summarize(ctx, req.CreatorID, interval, now, enrollments, ok)
	resp.Summary = summary
	resp.DegradedStreams = degraded

	s.metrics.RecordSummary(string(req.Period), time.Since(started))
	return resp, nil
}

// Refresh recomputes the summary for one dashboard view and publishes it
// only when no newer refresh was started in the meantime.
func (s *Service) Refresh(ctx context.Context, state *domain.DashboardQueryState, req domain.SummaryRequest) (domain.SummaryResponse, bool, error) {
	if state == nil {
		resp, err := s.GetRevenueSummary(ctx, req)
		return resp, err == nil, err
	}

	seq := state.Begin()
	resp, err := s.GetRevenueSummary(ctx, req)
	if err != nil {
		return domain.SummaryResponse{}, false, err
	}
	if !state.Publish(seq, resp) {
		s.metrics.RecordStaleRefresh()
		s.log.Debug("discarding stale dashboard refresh",
			zap.String("creator_id", req.CreatorID),
			zap.Uint64("sequence", seq),
		)
		return resp, false, nil
	}
	return resp, true, nil
}

func (s *Service) GetLessonEarnings(ctx context.Context, req domain.SummaryRequest) (domain.LessonEarnings, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return domain.LessonEarnings{}, err
	}
	now := s.now()
	interval := period.Resolve(period.Selector{Period: req.Period, Custom: req.Custom}, now)
	out := domain.LessonEarnings{
		Period:       req.Period,
		Interval:     interval,
		Groups:       []domain.LessonGroup{},
		Transactions: []domain.LessonSaleRecord{},
	}
	out.Summary.AvgBenefit = aggregate.DefaultBenefitPercentage
	if req.CreatorID == "" {
		return out, nil
	}

	var records []domain.LessonSaleRecord
	ok := s.fetch(ctx, domain.StreamLesson, func(ctx context.Context) (int, error) {
		var err error
		records, err = s.source.GetLessonEarningsBreakdown(ctx, req.CreatorID)
		return len(records), err
	})
	if !ok {
		out.Degraded = true
		return out, nil
	}

	cfg := s.earnings.Get()
	result := aggregate.Lessons(records, interval, aggregate.LessonOptions{GroupingKey: cfg.LessonGroupingKey})
	out.Groups = result.Groups
	out.Transactions = result.Transactions
	out.Summary = domain.LessonSummaryCards{
		TotalGross:    result.Totals.Gross,
		TotalNet:      result.Totals.Net,
		TotalPlatform: result.Totals.Fee,
		TotalSales:    int64(len(result.Transactions)),
		MonthlyNet:    aggregate.MonthToDateNet(records, period.StartOfMonth(now)),
		AvgBenefit:    result.LatestBenefitPercentage,
	}
	return out, nil
}

func (s *Service) GetSequencerEarnings(ctx context.Context, req domain.SummaryRequest) (domain.SequencerEarnings, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return domain.SequencerEarnings{}, err
	}
	now := s.now()
	interval := period.Resolve(period.Selector{Period: req.Period, Custom: req.Custom}, now)
	out := domain.SequencerEarnings{
		Period:   req.Period,
		Interval: interval,
		Groups:   []domain.SequencerGroup{},
		Sales:    []domain.SequencerSale{},
	}
	if req.CreatorID == "" {
		return out, nil
	}

	records, ok := s.loadEnrollments(ctx)
	if !ok {
		out.Degraded = true
		return out, nil
	}

	opts := s.sequencerOptions()
	result := aggregate.Sequencer(req.CreatorID, records, interval, opts)
	monthStart := period.StartOfMonth(now)
	monthly := aggregate.Sequencer(req.CreatorID, records, &domain.Interval{From: &monthStart}, opts)

	out.Groups = result.Groups
	out.Sales = result.Sales
	out.Summary = domain.SequencerSummaryCards{
		TotalGross:    result.Totals.Gross,
		TotalNet:      result.Totals.Net,
		TotalPlatform: result.Totals.Fee,
		TotalSales:    int64(len(result.Sales)),
		MonthlyNet:    monthly.Totals.Net,
	}
	return out, nil
}

func (s *Service) GetDiscountEarnings(ctx context.Context, creatorID string) (domain.DiscountResult, error) {
	creatorID = strings.TrimSpace(creatorID)
	empty := domain.DiscountResult{Records: []domain.DiscountBenefitRecord{}}
	if creatorID == "" {
		return empty, nil
	}

	var records []domain.DiscountBenefitRecord
	ok := s.fetch(ctx, "discount", func(ctx context.Context) (int, error) {
		var err error
		records, err = s.source.ListDiscountBenefits(ctx, creatorID)
		return len(records), err
	})
	if !ok {
		return empty, nil
	}
	return aggregate.Discounts(records, period.StartOfMonth(s.now())), nil
}

func (s *Service) GetPlatformOverview(ctx context.Context, req domain.OverviewRequest) (domain.PlatformOverview, error) {
	parsed, err := period.ParsePeriod(string(req.Period))
	if err != nil {
		return domain.PlatformOverview{}, err
	}
	req.Period = parsed
	creatorIDs := uniqueCreatorIDs(req.CreatorIDs)
	if len(creatorIDs) == 0 {
		return domain.PlatformOverview{}, domain.ErrInvalidCreator
	}

	ctx, span := s.tracer.Start(ctx, "earnings.GetPlatformOverview", trace.WithAttributes(
		attribute.Int("creator_count", len(creatorIDs)),
		attribute.String("period", string(req.Period)),
	))
	defer span.End()

	now := s.now()
	interval := period.Resolve(period.Selector{Period: req.Period, Custom: req.Custom}, now)
	enrollments, ok := s.loadEnrollments(ctx)

	overview := domain.PlatformOverview{
		Period:     req.Period,
		Interval:   interval,
		Creators:   make([]domain.CreatorSummary, 0, len(creatorIDs)),
		ByStream:   map[domain.Stream]int64{},
		ComputedAt: now,
	}
	for _, creatorID := range creatorIDs {
		summary, degraded := s.summarize(ctx, creatorID, interval, now, enrollments, ok)
		overview.Creators = append(overview.Creators, domain.CreatorSummary{
			CreatorID:       creatorID,
			Summary:         summary,
			DegradedStreams: degraded,
		})
		overview.Totals = overview.Totals.Add(domain.StreamTotals{
			Gross: summary.TotalGross,
			Net:   summary.TotalNet,
			Fee:   summary.TotalFee,
		})
		overview.ByStream[domain.StreamArrangement] += summary.Arrangement.Gross
		overview.ByStream[domain.StreamLesson] += summary.Lesson.Gross
		overview.ByStream[domain.StreamSequencer] += summary.Sequencer.Gross
	}
	return overview, nil
}

func (s *Service) Export(ctx context.Context, req domain.ExportRequest) (domain.ExportFile, error) {
	if _, err := domain.ParseStream(string(req.Stream)); err != nil {
		return domain.ExportFile{}, err
	}
	exportFormat, err := domain.ParseExportFormat(string(req.Format))
	if err != nil {
		return domain.ExportFile{}, err
	}
	if strings.TrimSpace(req.CreatorID) == "" {
		return domain.ExportFile{}, domain.ErrInvalidCreator
	}

	var rows [][]string
	switch req.Stream {
	case domain.StreamLesson:
		lessons, err := s.GetLessonEarnings(ctx, req.SummaryRequest)
		if err != nil {
			return domain.ExportFile{}, err
		}
		rows = format.LessonRows(lessons.Groups)
	case domain.StreamSequencer:
		sequencer, err := s.GetSequencerEarnings(ctx, req.SummaryRequest)
		if err != nil {
			return domain.ExportFile{}, err
		}
		rows = format.SequencerRows(sequencer.Groups)
	}

	body, contentType, err := format.Render(exportFormat, rows)
	if err != nil {
		return domain.ExportFile{}, err
	}
	s.metrics.RecordExport(string(req.Stream), string(exportFormat))

	return domain.ExportFile{
		Filename:    format.ExportFilename(req.Stream, string(exportFormat), s.clock.Now()),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// summarize fetches the creator's arrangement and lesson rows concurrently and
// composes them with the already loaded enrollments. A failed stream
// contributes zero and is reported as degraded.
func (s *Service) summarize(ctx context.Context, creatorID string, interval *domain.Interval, now time.Time, enrollments []domain.SequencerEnrollmentRecord, enrollmentsOK bool) (domain.RevenueSummary, []domain.Stream) {
	var (
		wg        sync.WaitGroup
		benefits  []domain.BenefitRecord
		lessons   []domain.LessonSaleRecord
		benefitOK bool
		lessonOK  bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		benefitOK = s.fetch(ctx, domain.StreamArrangement, func(ctx context.Context) (int, error) {
			var err error
			benefits, err = s.source.ListBenefitRecords(ctx, creatorID, interval)
			return len(benefits), err
		})
	}()
	go func() {
		defer wg.Done()
		lessonOK = s.fetch(ctx, domain.StreamLesson, func(ctx context.Context) (int, error) {
			var err error
			lessons, err = s.source.GetLessonEarningsBreakdown(ctx, creatorID)
			return len(lessons), err
		})
	}()
	wg.Wait()

	var degraded []domain.Stream
	if !benefitOK {
		benefits = nil
		degraded = append(degraded, domain.StreamArrangement)
	}
	if !lessonOK {
		lessons = nil
		degraded = append(degraded, domain.StreamLesson)
	}
	if !enrollmentsOK {
		enrollments = nil
		degraded = append(degraded, domain.StreamSequencer)
	}

	cfg := s.earnings.Get()
	arrangement := aggregate.Arrangement(benefits)
	lesson := aggregate.Lessons(lessons, interval, aggregate.LessonOptions{GroupingKey: cfg.LessonGroupingKey})
	sequencer := aggregate.Sequencer(creatorID, enrollments, interval, s.sequencerOptions())
	monthToDate := aggregate.MonthToDateNet(lessons, period.StartOfMonth(now))

	return aggregate.Compose(arrangement, lesson, sequencer, monthToDate), degraded
}

func (s *Service) loadEnrollments(ctx context.Context) ([]domain.SequencerEnrollmentRecord, bool) {
	var records []domain.SequencerEnrollmentRecord
	ok := s.fetch(ctx, domain.StreamSequencer, func(ctx context.Context) (int, error) {
		var err error
		records, err = s.source.ListSequencerEnrollments(ctx)
		return len(records), err
	})
	return records, ok
}

// fetch runs one stream read inside its own span. Failures are logged,
// counted and recorded on the span, then swallowed.
func (s *Service) fetch(ctx context.Context, stream domain.Stream, read func(context.Context) (int, error)) bool {
	ctx, span := s.tracer.Start(ctx, "earnings.fetch."+string(stream))
	defer span.End()

	count, err := read(ctx)
	if err != nil {
		s.log.Error("failed to load earnings stream",
			zap.String("stream", string(stream)),
			zap.Error(err),
		)
		s.metrics.RecordStreamFetchFailure(string(stream), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return false
	}
	span.SetAttributes(attribute.Int("records", count))
	s.metrics.ObserveStreamRecords(string(stream), count)
	return true
}

func (s *Service) sequencerOptions() aggregate.SequencerOptions {
	return aggregate.SequencerOptions{
		CreatorSharePercent: float64(s.earnings.Get().SequencerCreatorSharePercent),
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.location)
}

func normalizeRequest(req domain.SummaryRequest) (domain.SummaryRequest, error) {
	req.CreatorID = strings.TrimSpace(req.CreatorID)
	p, err := period.ParsePeriod(string(req.Period))
	if err != nil {
		return req, err
	}
	req.Period = p
	return req, nil
}

func uniqueCreatorIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
