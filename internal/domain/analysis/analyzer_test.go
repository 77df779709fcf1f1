package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/irt"
)

func responses(code string, correct ...bool) []ScoredResponse {
	out := make([]ScoredResponse, len(correct))
	for i, c := range correct {
		out[i] = ScoredResponse{
			DomainCode: code,
			Params:     irt.ItemParams{Discrimination: 1.5, Difficulty: 0, Guessing: 0.2},
			Correct:    c,
		}
	}
	return out
}

func testDomains() []domain.Domain {
	return []domain.Domain{
		{Code: "ANAT", WeightPercentage: 40, Active: true},
		{Code: "PHARM", WeightPercentage: 35, Active: true},
		{Code: "ETHICS", WeightPercentage: 25, Active: true},
	}
}

func find(t *testing.T, r Result, code string) domain.PlanDomainEstimate {
	t.Helper()
	for _, d := range r.Domains {
		if d.DomainCode == code {
			return d
		}
	}
	t.Fatalf("domain %s not in result", code)
	return domain.PlanDomainEstimate{}
}

func TestAnalyzeClassifiesAndRanks(t *testing.T) {
	t.Parallel()

	var rs []ScoredResponse
	rs = append(rs, responses("ANAT", false, false, false, false, false)...)
	rs = append(rs, responses("PHARM", true, true, true, true, true)...)
	rs = append(rs, responses("ETHICS", true, false, true, false)...)

	target := 0.0
	result, err := NewAnalyzer(nil, nil).Analyze(Input{
		Responses:     rs,
		Domains:       testDomains(),
		TargetAbility: &target,
	})
	require.NoError(t, err)

	anat := find(t, result, "ANAT")
	pharm := find(t, result, "PHARM")
	ethics := find(t, result, "ETHICS")

	assert.Equal(t, domain.ClassificationWeak, anat.Classification)
	assert.Equal(t, domain.ClassificationStrong, pharm.Classification)
	assert.Equal(t, domain.ClassificationDeveloping, ethics.Classification)
	assert.Equal(t, 5, anat.Answered)

	assert.Equal(t, []string{"ANAT"}, result.Weak)
	assert.Equal(t, []string{"PHARM"}, result.Strong)
	assert.Equal(t, "ANAT", result.TopPriority())

	assert.InDelta(t, -anat.Ability*40, anat.Priority, 1e-9)
	assert.Zero(t, pharm.Priority)
	assert.Zero(t, pharm.Gap)
}

func TestAnalyzeRankingUsesWeight(t *testing.T) {
	t.Parallel()

	// Same responses in both domains, so the heavier domain ranks first.
	var rs []ScoredResponse
	rs = append(rs, responses("ETHICS", false, false, false)...)
	rs = append(rs, responses("ANAT", false, false, false)...)

	result, err := NewAnalyzer(nil, nil).Analyze(Input{Responses: rs, Domains: testDomains()})
	require.NoError(t, err)

	require.Len(t, result.Domains, 3)
	assert.Equal(t, "ANAT", result.Domains[0].DomainCode)
	assert.Equal(t, "ETHICS", result.Domains[1].DomainCode)
	assert.Greater(t, result.Domains[0].Priority, result.Domains[1].Priority)
}

func TestAnalyzeUnsampledDomains(t *testing.T) {
	t.Parallel()

	rs := responses("ANAT", true, true)

	t.Run("inherit from the previous plan", func(t *testing.T) {
		t.Parallel()
		result, err := NewAnalyzer(nil, nil).Analyze(Input{
			Responses: rs,
			Domains:   testDomains(),
			Previous:  domain.DomainAbilityMap{"PHARM": {Ability: 1.7, SE: 0.35}},
		})
		require.NoError(t, err)

		pharm := find(t, result, "PHARM")
		assert.True(t, pharm.Inherited)
		assert.Equal(t, 1.7, pharm.Ability)
		assert.Equal(t, 0.35, pharm.SE)
		assert.Equal(t, domain.ClassificationStrong, pharm.Classification)
		assert.Zero(t, pharm.Answered)
	})

	t.Run("are unassessed without history rather than weak", func(t *testing.T) {
		t.Parallel()
		result, err := NewAnalyzer(nil, nil).Analyze(Input{Responses: rs, Domains: testDomains()})
		require.NoError(t, err)

		ethics := find(t, result, "ETHICS")
		assert.Equal(t, domain.ClassificationUnassessed, ethics.Classification)
		assert.NotContains(t, result.Weak, "ETHICS")
		assert.Zero(t, ethics.Priority)
	})
}

func TestAnalyzePreviousAbilityIsThePrior(t *testing.T) {
	t.Parallel()

	rs := responses("ANAT", true)
	analyzer := NewAnalyzer(nil, nil)

	fresh, err := analyzer.Analyze(Input{Responses: rs, Domains: testDomains()})
	require.NoError(t, err)
	informed, err := analyzer.Analyze(Input{
		Responses: rs,
		Domains:   testDomains(),
		Previous:  domain.DomainAbilityMap{"ANAT": {Ability: -1.5, SE: 0.4}},
	})
	require.NoError(t, err)

	assert.Less(t, find(t, informed, "ANAT").Ability, find(t, fresh, "ANAT").Ability)
	assert.False(t, find(t, informed, "ANAT").Inherited)
}

func TestAnalyzeUnknownDomain(t *testing.T) {
	t.Parallel()

	_, err := NewAnalyzer(nil, nil).Analyze(Input{
		Responses: responses("SURGERY", true),
		Domains:   testDomains(),
	})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)
}

func TestAnalyzeNoDomains(t *testing.T) {
	t.Parallel()

	_, err := NewAnalyzer(nil, nil).Analyze(Input{})
	assert.ErrorIs(t, err, domain.ErrNoActiveDomains)
}

func TestAnalyzeNonConvergenceFallsBackToPrior(t *testing.T) {
	t.Parallel()

	est := irt.NewEstimatorWithParams(irt.NewEstimatorParams(irt.EstimatorParamsConfig{
		InitialPoints: 5,
		MaxIterations: 1,
		Tolerance:     1e-300,
	}))
	result, err := NewAnalyzer(est, nil).Analyze(Input{
		Responses: responses("ANAT", true, false, true),
		Domains:   testDomains(),
		Previous:  domain.DomainAbilityMap{"ANAT": {Ability: 0.8, SE: 0.5}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ANAT"}, result.NonConverged)
	assert.Equal(t, 0.8, find(t, result, "ANAT").Ability)
}

func TestCurrentAbility(t *testing.T) {
	t.Parallel()

	r := Result{Domains: []domain.PlanDomainEstimate{
		{DomainCode: "A", Ability: 1, Weight: 75, Classification: domain.ClassificationStrong},
		{DomainCode: "B", Ability: -1, Weight: 25, Classification: domain.ClassificationWeak},
		{DomainCode: "C", Ability: 0, Weight: 50, Classification: domain.ClassificationUnassessed},
	}}
	assert.InDelta(t, 0.5, r.CurrentAbility(), 1e-12)
	assert.Zero(t, Result{}.CurrentAbility())
}

func TestNewParams(t *testing.T) {
	t.Parallel()

	zero := 0.0
	params := NewParams(ParamsConfig{TargetAbility: &zero, WeakMargin: 0.25})
	assert.Equal(t, 0.0, params.TargetAbility)
	assert.Equal(t, 0.25, params.WeakMargin)
	assert.Equal(t, 0.5, params.StrongMargin)
}
