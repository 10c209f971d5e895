package aggregate

import (
	"strings"

	"github.com/smallbiznis/royalty/internal/earnings/domain"
)

const unknownSongTitle = "Unknown"

type SequencerOptions struct {
	// CreatorSharePercent is the creator's share of each enrollment payment.
	CreatorSharePercent float64
}

// Sequencer keeps paid enrollments of the creator's songs dated inside
// interval and splits each amount by the configured creator share. An
// enrollment without a payment time is dated by its enrollment time.
func Sequencer(creatorID string, records []domain.SequencerEnrollmentRecord, interval *domain.Interval, opts SequencerOptions) domain.SequencerResult {
	result := domain.SequencerResult{
		Groups: []domain.SequencerGroup{},
		Sales:  []domain.SequencerSale{},
	}
	index := make(map[string]int)

	for _, record := range records {
		if record.SongCreatorID != creatorID || record.PaymentStatus != domain.PaymentStatusPaid {
			continue
		}
		date := record.EffectiveDate()
		if !interval.Contains(date) {
			continue
		}

		amount := domain.Value(record.Amount)
		fee, net := Split(amount, opts.CreatorSharePercent)
		title := strings.TrimSpace(record.SongTitle)
		if title == "" {
			title = unknownSongTitle
		}

		result.Totals.Gross += amount
		result.Totals.Net += net
		result.Totals.Fee += fee
		result.Sales = append(result.Sales, domain.SequencerSale{
			EnrollmentID:    record.EnrollmentID,
			SequencerFileID: record.SequencerFileID,
			SongTitle:       title,
			BuyerID:         record.BuyerID,
			Date:            date,
			Amount:          amount,
			PlatformFee:     fee,
			NetAmount:       net,
		})

		pos, ok := index[record.SequencerFileID]
		if !ok {
			pos = len(result.Groups)
			index[record.SequencerFileID] = pos
			result.Groups = append(result.Groups, domain.SequencerGroup{
				SequencerFileID: record.SequencerFileID,
				SongTitle:       title,
			})
		}
		group := &result.Groups[pos]
		group.SaleCount++
		group.GrossRevenue += amount
		group.PlatformFee += fee
		group.NetEarnings += net
	}
	return result
}
