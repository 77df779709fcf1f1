// Package selection implements adaptive item selection: choosing the next
// question that carries the most information about the test-taker's ability
// while keeping the test balanced across knowledge domains and limiting how
// often any single item is shown.
package selection

import (
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/irt"
)

// ErrNoEligibleItems is returned when no item can be offered, even after
// relaxing the exposure cap.
var ErrNoEligibleItems = errors.New("no eligible items remain")

// Request carries everything needed to pick the next item.
type Request struct {
	// Items is the remaining pool. Items already administered in the session
	// must have been removed by the caller.
	Items []domain.Item

	// ExposureRates maps item IDs to the fraction of sessions that served them.
	// Missing entries count as never exposed.
	ExposureRates map[uuid.UUID]float64

	// Domains is the session's domain scope with exam weights.
	Domains []domain.Domain

	// Theta is the overall ability, used for domains without their own estimate.
	Theta float64

	// DomainAbilities holds per-domain ability and answered counts.
	DomainAbilities domain.DomainAbilityMap

	// Answered is the number of responses recorded so far.
	Answered int

	// MaxQuestions is the configured test length.
	MaxQuestions int
}

// Selection is the item chosen for delivery.
type Selection struct {
	Item                 domain.Item
	Params               irt.ItemParams
	CalibrationDefaulted bool
	Information          float64
	// Relaxed is set when the exposure cap had to be lifted to find a candidate.
	Relaxed bool
}

// Selector picks the next item for a session.
type Selector interface {
	// Select returns the maximum-information item among the domains that are
	// currently behind their coverage schedule. It returns ErrNoEligibleItems
	// when the pool is empty.
	Select(req Request) (Selection, error)
}

type maxInfoSelector struct {
	params *Params
}

// NewDefaultSelector creates a new selector with default parameters
func NewDefaultSelector() Selector {
	return &maxInfoSelector{params: NewDefaultParams()}
}

// NewSelectorWithParams creates a new selector with custom parameters
func NewSelectorWithParams(params *Params) Selector {
	if params == nil {
		params = NewDefaultParams()
	}
	return &maxInfoSelector{params: params}
}

type candidate struct {
	item      domain.Item
	params    irt.ItemParams
	defaulted bool
	info      float64
	quotaGap  float64
}

// Select implements Selector.Select
func (s *maxInfoSelector) Select(req Request) (Selection, error) {
	pools := make(map[string][]domain.Item)
	for _, item := range req.Items {
		pools[item.DomainCode] = append(pools[item.DomainCode], item)
	}

	shares, err := s.domainShares(req.Domains, pools)
	if err != nil {
		return Selection{}, err
	}

	competing := competingDomains(shares, req.DomainAbilities, req.Answered, req.MaxQuestions)

	candidates, relaxed := s.filterByExposure(competing, pools, req.ExposureRates)
	if len(candidates) == 0 {
		return Selection{}, ErrNoEligibleItems
	}

	var best *candidate
	for _, item := range candidates {
		params, defaulted := item.ResolvedParams()
		theta := req.Theta
		if est, ok := req.DomainAbilities[item.DomainCode]; ok && est.Answered > 0 {
			theta = est.Ability
		}
		info, err := irt.Information(theta, params)
		if err != nil {
			continue
		}
		c := candidate{
			item:      item,
			params:    params,
			defaulted: defaulted,
			info:      info,
			quotaGap:  shares[item.DomainCode]*float64(req.MaxQuestions) - float64(answeredIn(req.DomainAbilities, item.DomainCode)),
		}
		if best == nil || s.better(c, *best) {
			cc := c
			best = &cc
		}
	}
	if best == nil {
		return Selection{}, ErrNoEligibleItems
	}

	return Selection{
		Item:                 best.item,
		Params:               best.params,
		CalibrationDefaulted: best.defaulted,
		Information:          best.info,
		Relaxed:              relaxed,
	}, nil
}

// better reports whether a should be preferred over b.
func (s *maxInfoSelector) better(a, b candidate) bool {
	if math.Abs(a.info-b.info) > s.params.TieTolerance {
		return a.info > b.info
	}
	if a.quotaGap != b.quotaGap {
		return a.quotaGap > b.quotaGap
	}
	return a.item.ID.String() < b.item.ID.String()
}

// domainShares returns each scoped domain's share of the test (0..1). Domains
// with an empty pool are dropped and their weight redistributed.
func (s *maxInfoSelector) domainShares(scope []domain.Domain, pools map[string][]domain.Item) (map[string]float64, error) {
	withPool := make([]domain.Domain, 0, len(scope))
	for _, d := range scope {
		if len(pools[d.Code]) == 0 {
			continue
		}
		d.Active = true
		withPool = append(withPool, d)
	}
	if len(withPool) == 0 {
		return nil, ErrNoEligibleItems
	}

	rebalanced, err := domain.RebalanceWeights(withPool, s.params.CriticalFloor)
	if errors.Is(err, domain.ErrCriticalFloorTooHigh) {
		rebalanced, err = domain.RebalanceWeights(withPool, 0)
	}
	if err != nil {
		return nil, err
	}

	shares := make(map[string]float64, len(rebalanced))
	for _, d := range rebalanced {
		shares[d.Code] = d.WeightPercentage / domain.TotalDomainWeight
	}
	return shares, nil
}

// competingDomains applies the coverage schedule. A domain is due when it has
// fewer responses than its share of the next question count; if nothing is
// due, domains short of their share of the whole test compete, and failing
// that every domain does.
func competingDomains(shares map[string]float64, abilities domain.DomainAbilityMap, answered, maxQuestions int) []string {
	codes := make([]string, 0, len(shares))
	for code := range shares {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var due, underQuota []string
	for _, code := range codes {
		count := answeredIn(abilities, code)
		if count < quota(shares[code], answered+1) {
			due = append(due, code)
		}
		if count < quota(shares[code], maxQuestions) {
			underQuota = append(underQuota, code)
		}
	}
	switch {
	case len(due) > 0:
		return due
	case len(underQuota) > 0:
		return underQuota
	default:
		return codes
	}
}

// filterByExposure collects the items of the competing domains whose exposure
// is within the cap. If none qualifies the cap is ignored and relaxed is true.
func (s *maxInfoSelector) filterByExposure(competing []string, pools map[string][]domain.Item, rates map[uuid.UUID]float64) ([]domain.Item, bool) {
	var all, capped []domain.Item
	for _, code := range competing {
		for _, item := range pools[code] {
			all = append(all, item)
			if rates[item.ID] <= s.params.ExposureCap {
				capped = append(capped, item)
			}
		}
	}
	if len(capped) > 0 {
		return capped, false
	}
	return all, len(all) > 0
}

// quota is the number of questions a domain with the given share is entitled
// to out of n. A small epsilon keeps float error from rounding exact products up.
func quota(share float64, n int) int {
	return int(math.Ceil(share*float64(n) - 1e-9))
}

func answeredIn(abilities domain.DomainAbilityMap, code string) int {
	if abilities == nil {
		return 0
	}
	return abilities[code].Answered
}
