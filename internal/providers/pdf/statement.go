package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	appconfig "github.com/smallbiznis/royalty/internal/config"
	"github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/earnings/format"
)

const ContentType = "application/pdf"

// StatementData is everything printed on a creator earnings statement.
type StatementData struct {
	CreatorID   string
	PeriodLabel string
	GeneratedAt time.Time
	Summary     domain.SummaryResponse
	Lessons     domain.LessonEarnings
	Sequencer   domain.SequencerEarnings
}

type PDFProvider struct {
	policy *appconfig.EarningsConfigHolder
}

// New prints amounts with the policy's currency prefix, read per statement.
// A nil holder falls back to the default policy.
func New(policy *appconfig.EarningsConfigHolder) Provider {
	return &PDFProvider{policy: policy}
}

// StatementFilename builds a download name such as
// royalty-statement-c1-this_month-2024-05-20.pdf.
func StatementFilename(creatorID, periodLabel string, now time.Time) string {
	name := slug.Make(fmt.Sprintf("royalty statement %s %s %s", creatorID, periodLabel, now.UTC().Format("2006-01-02")))
	return name + ".pdf"
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	money := p.moneyFormatter()

	m.AddRow(20,
		text.NewCol(8, "Earnings statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		col.New(4).Add(
			text.New("Creator: "+data.CreatorID, props.Text{Size: 9, Align: align.Right}),
			text.New("Period: "+data.PeriodLabel, props.Text{Size: 9, Top: 4, Align: align.Right}),
			text.New("Generated: "+data.GeneratedAt.Format("2006-01-02 15:04 MST"), props.Text{Size: 9, Top: 8, Align: align.Right}),
		),
	)

	summary := data.Summary.Summary
	m.AddRow(15,
		text.NewCol(12, "Total net earnings "+money(summary.TotalNet), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)
	if len(data.Summary.DegradedStreams) > 0 {
		streams := make([]string, 0, len(data.Summary.DegradedStreams))
		for _, s := range data.Summary.DegradedStreams {
			streams = append(streams, string(s))
		}
		m.AddRow(8,
			text.NewCol(12, "Unavailable while generating: "+strings.Join(streams, ", "), props.Text{Size: 8, Style: fontstyle.Italic}),
		)
	}

	addHeader(m, "Stream", "", "Gross", "Platform fee", "Net")
	addMoneyRow(m, money, "Arrangement", "", summary.Arrangement)
	addMoneyRow(m, money, "Music Lab", "", summary.Lesson)
	addMoneyRow(m, money, "Sequencer", "", summary.Sequencer)
	addMoneyRow(m, money, "Total", "", domain.StreamTotals{Gross: summary.TotalGross, Fee: summary.TotalFee, Net: summary.TotalNet})

	if len(data.Lessons.Groups) > 0 {
		addSection(m, "Music Lab")
		addHeader(m, "Lesson", "Sales", "Gross", "Platform fee", "Net")
		for _, g := range data.Lessons.Groups {
			addMoneyRow(m, money, g.Title, fmt.Sprintf("%d", g.SaleCount), domain.StreamTotals{Gross: g.GrossRevenue, Fee: g.PlatformFee, Net: g.NetEarnings})
		}
	}

	if len(data.Sequencer.Groups) > 0 {
		addSection(m, "Sequencer")
		addHeader(m, "Song", "Sales", "Gross", "Platform fee", "Net")
		for _, g := range data.Sequencer.Groups {
			addMoneyRow(m, money, g.SongTitle, fmt.Sprintf("%d", g.SaleCount), domain.StreamTotals{Gross: g.GrossRevenue, Fee: g.PlatformFee, Net: g.NetEarnings})
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func addSection(m core.Maroto, title string) {
	m.AddRow(14,
		text.NewCol(12, title, props.Text{Size: 12, Style: fontstyle.Bold, Top: 6}),
	)
}

func addHeader(m core.Maroto, label, count, gross, fee, net string) {
	style := props.Text{Style: fontstyle.Bold, Size: 9}
	right := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(4, label, style),
		text.NewCol(2, count, right),
		text.NewCol(2, gross, right),
		text.NewCol(2, fee, right),
		text.NewCol(2, net, right),
	)
}

func addMoneyRow(m core.Maroto, money func(int64) string, label, count string, totals domain.StreamTotals) {
	right := props.Text{Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(4, label, props.Text{Size: 9}),
		text.NewCol(2, count, right),
		text.NewCol(2, money(totals.Gross), right),
		text.NewCol(2, money(totals.Fee), right),
		text.NewCol(2, money(totals.Net), right),
	)
}

func (p *PDFProvider) moneyFormatter() func(int64) string {
	prefix := p.policy.Get().CurrencyPrefix
	return func(v int64) string {
		return format.CurrencyWithPrefix(prefix, v)
	}
}
