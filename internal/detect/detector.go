package detect

import (
	"context"

	"github.com/ppiankov/credence/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultSeverity applies when the comparator reports no confidence
const defaultSeverity = 0.5

// StanceComparisonService is the language-model capability that judges
// whether a passage supports or contradicts a claim.
type StanceComparisonService interface {
	CompareStance(ctx context.Context, claimText, evidenceText string) (model.StanceJudgment, error)
}

// Options tunes the detector
type Options struct {
	Votes       int // Comparator calls per evidence item, majority wins
	Concurrency int // Evidence items compared at once
}

// Detector assigns stances to evidence and derives contradictions
type Detector struct {
	comparator StanceComparisonService
	opts       Options
	log        logrus.FieldLogger
}

// NewDetector creates a contradiction detector
func NewDetector(comparator StanceComparisonService, opts Options, log logrus.FieldLogger) *Detector {
	if opts.Votes <= 0 {
		opts.Votes = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{comparator: comparator, opts: opts, log: log}
}

// Detect compares the claim against every evidence item. The returned
// evidence keeps the input order with stances filled in, and each
// contradicting item yields one contradiction in the same order.
// Comparator failures leave the item unrelated.
func (d *Detector) Detect(ctx context.Context, claim model.Claim, evidence []model.Evidence) ([]model.Evidence, []model.Contradiction) {
	judged := make([]model.Evidence, len(evidence))
	copy(judged, evidence)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for i := range judged {
		g.Go(func() error {
			stance, confidence := d.vote(gctx, claim.Text, judged[i].Text(), func(err error) {
				d.log.WithError(&model.ComparisonError{ClaimID: claim.ID, SourceURL: judged[i].SourceURL, Err: err}).
					Warn("stance comparison failed")
			})
			judged[i].Stance = stance
			judged[i].StanceConfidence = confidence
			return nil
		})
	}
	_ = g.Wait()

	contradictions := make([]model.Contradiction, 0)
	for _, ev := range judged {
		if ev.Stance != model.StanceContradicts {
			continue
		}
		contradictions = append(contradictions, model.Contradiction{
			ClaimID:         claim.ID,
			ConflictingText: ev.Text(),
			SourceName:      ev.SourceName,
			SourceURL:       ev.SourceURL,
			Severity:        ev.StanceConfidence,
		})
	}

	return judged, contradictions
}

// DetectClaimConflicts compares every pair of claims and returns a
// contradiction for each pair the comparator says disagree. The later
// claim owns the record and the earlier one is referenced.
func (d *Detector) DetectClaimConflicts(ctx context.Context, claims []model.Claim) []model.Contradiction {
	type pair struct{ earlier, later int }
	var pairs []pair
	for j := range claims {
		for i := 0; i < j; i++ {
			pairs = append(pairs, pair{earlier: i, later: j})
		}
	}

	results := make([]*model.Contradiction, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for idx, p := range pairs {
		g.Go(func() error {
			earlier, later := claims[p.earlier], claims[p.later]
			stance, confidence := d.vote(gctx, later.Text, earlier.Text, func(err error) {
				d.log.WithError(&model.ComparisonError{ClaimID: later.ID, Err: err}).
					WithField("other_claim_id", earlier.ID).
					Warn("claim comparison failed")
			})
			if stance == model.StanceContradicts {
				results[idx] = &model.Contradiction{
					ClaimID:         later.ID,
					ConflictingText: earlier.Text,
					OtherClaimID:    earlier.ID,
					Severity:        confidence,
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	contradictions := make([]model.Contradiction, 0)
	for _, c := range results {
		if c != nil {
			contradictions = append(contradictions, *c)
		}
	}
	return contradictions
}

// vote asks the comparator opts.Votes times and returns the plurality
// stance with the mean confidence of the winning votes.
func (d *Detector) vote(ctx context.Context, claimText, evidenceText string, onError func(error)) (model.Stance, float64) {
	if d.comparator == nil {
		return model.StanceUnrelated, 0
	}

	judgments := make([]model.StanceJudgment, 0, d.opts.Votes)

	for range d.opts.Votes {
		if ctx.Err() != nil {
			break
		}
		judgment, err := d.comparator.CompareStance(ctx, claimText, evidenceText)
		if err != nil {
			onError(err)
			continue
		}
		judgments = append(judgments, judgment)
	}

	return Majority(judgments)
}

// Majority resolves repeated judgments: plurality wins, ties and an empty
// input resolve to unrelated. Confidence is the mean reported confidence
// of the winning judgments, or 0.5 when none reported one.
func Majority(judgments []model.StanceJudgment) (model.Stance, float64) {
	counts := make(map[model.Stance]int, 3)
	for _, j := range judgments {
		counts[j.Stance]++
	}

	winner := model.StanceUnrelated
	best, tied := 0, false
	for _, stance := range []model.Stance{model.StanceSupports, model.StanceContradicts, model.StanceUnrelated} {
		switch {
		case counts[stance] > best:
			winner, best, tied = stance, counts[stance], false
		case counts[stance] == best && best > 0:
			tied = true
		}
	}
	if best == 0 || tied {
		return model.StanceUnrelated, 0
	}

	sum, reported := 0.0, 0
	for _, j := range judgments {
		if j.Stance == winner && j.Confidence != nil {
			sum += *j.Confidence
			reported++
		}
	}
	if reported == 0 {
		return winner, defaultSeverity
	}
	return winner, sum / float64(reported)
}
