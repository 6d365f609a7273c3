package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle states. Transitions are driven exclusively by the engine;
// the order below is the only valid forward path, FAILED/ABORTED may be
// entered from any non-terminal state.
const (
	StateInit         = "INIT"
	StateInterpreting = "INTERPRETING"
	StatePlanning     = "PLANNING"
	StateDrafting     = "DRAFTING"
	StateJudging      = "JUDGING"
	StateFinalized    = "FINALIZED"
	StateFailed       = "FAILED"
	StateAborted      = "ABORTED"
)

// Failure reasons recorded on FAILED sessions.
const (
	ReasonIntentUnresolved      = "INTENT_UNRESOLVED"
	ReasonPlanningFailed        = "PLANNING_FAILED"
	ReasonDraftGenerationFailed = "DRAFT_GENERATION_FAILED"
	ReasonSafetyUnresolved      = "SAFETY_UNRESOLVED"
	ReasonAborted               = "CALLER_ABORTED"
)

// Judge verdicts.
const (
	VerdictPass   = "PASS"
	VerdictRevise = "REVISE"
	VerdictReject = "REJECT"
)

// Hard safety gates. Any single failure forces a REJECT verdict regardless
// of soft scores.
const (
	GateViolence = "violence"
	GateHorror   = "horror"
	GateSexual   = "sexual_content"
	GateHate     = "hate_discrimination"
	GateUnsafe   = "unsafe_content"
)

// HardGates enumerates every gate a judge report must cover.
var HardGates = []string{GateViolence, GateHorror, GateSexual, GateHate, GateUnsafe}

// Soft quality dimensions, each scored 0-10. Only consulted when all hard
// gates pass.
const (
	DimAgeFit          = "age_fit"
	DimLowArousal      = "low_arousal"
	DimStructure       = "structure"
	DimCoziness        = "coziness"
	DimCulturalEthics  = "cultural_ethics"
	DimIntentAlignment = "intent_alignment"
)

// SoftDimensions enumerates every dimension a judge report must score.
var SoftDimensions = []string{DimAgeFit, DimLowArousal, DimStructure, DimCoziness, DimCulturalEthics, DimIntentAlignment}

// RequestSpec is the structured normalization of the raw user prompt.
// Produced once by the interpreter, immutable afterwards.
type RequestSpec struct {
	Theme          string   `json:"theme"`
	Characters     []string `json:"characters"`
	Setting        string   `json:"setting"`
	AgeBand        string   `json:"age_band"`
	Tone           string   `json:"tone"`
	LengthTarget   string   `json:"length_target"`
	MustInclude    []string `json:"must_include,omitempty"`
	MustAvoid      []string `json:"must_avoid,omitempty"`
	CulturalNotes  string   `json:"cultural_notes,omitempty"`
	MemoryDefaults string   `json:"memory_defaults,omitempty"`
}

// ToText renders the request spec for prompt injection.
func (s *RequestSpec) ToText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Theme: %s\n", s.Theme)
	fmt.Fprintf(&b, "- Main character(s): %s\n", strings.Join(s.Characters, ", "))
	fmt.Fprintf(&b, "- Setting: %s\n", s.Setting)
	fmt.Fprintf(&b, "- Age band: %s\n", s.AgeBand)
	fmt.Fprintf(&b, "- Tone: %s\n", s.Tone)
	fmt.Fprintf(&b, "- Length target: %s\n", s.LengthTarget)
	if len(s.MustInclude) > 0 {
		fmt.Fprintf(&b, "- Must-include: %s\n", strings.Join(s.MustInclude, "; "))
	}
	if len(s.MustAvoid) > 0 {
		fmt.Fprintf(&b, "- Must-avoid: %s\n", strings.Join(s.MustAvoid, "; "))
	}
	if s.CulturalNotes != "" {
		fmt.Fprintf(&b, "- Cultural notes: %s\n", s.CulturalNotes)
	}
	if s.MemoryDefaults != "" {
		fmt.Fprintf(&b, "- User preferences: %s\n", s.MemoryDefaults)
	}
	return b.String()
}

// PlanBeat is one scene summary in the outline.
type PlanBeat struct {
	Summary string `json:"summary"`
	Closure bool   `json:"closure"` // the wind-down beat
}

// Plan is an immutable ordered outline. Regeneration produces a new version,
// never a mutation.
type Plan struct {
	Version int        `json:"version"`
	Beats   []PlanBeat `json:"beats"`
}

// ClosureBeat returns the index of the beat marked as closure, or -1.
func (p *Plan) ClosureBeat() int {
	for i, b := range p.Beats {
		if b.Closure {
			return i
		}
	}
	return -1
}

// Draft is one versioned story text. Drafts form a linear chain: draft N+1's
// parent is always draft N.
type Draft struct {
	RevisionIndex         int       `json:"revision_index"`
	Text                  string    `json:"text"`
	AddressedInstructions []string  `json:"addressed_instructions,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// GateResult is the outcome of a single hard gate check.
type GateResult struct {
	Passed   bool   `json:"passed"`
	Evidence string `json:"evidence,omitempty"`
}

// JudgeReport is the immutable verdict for one draft version.
type JudgeReport struct {
	RevisionIndex        int                   `json:"revision_index"`
	HardGateResults      map[string]GateResult `json:"hard_gate_results"`
	SoftScores           map[string]float64    `json:"soft_scores"`
	OverallVerdict       string                `json:"overall_verdict"`
	RevisionInstructions []string              `json:"revision_instructions,omitempty"`
	Issues               []string              `json:"issues,omitempty"`
	Summary              string                `json:"summary,omitempty"`
	RewriteRequired      bool                  `json:"rewrite_required"`
	CreatedAt            time.Time             `json:"created_at"`
}

// GatesPassed reports whether every hard gate cleared.
func (r *JudgeReport) GatesPassed() bool {
	for _, gate := range HardGates {
		res, ok := r.HardGateResults[gate]
		if !ok || !res.Passed {
			return false
		}
	}
	return true
}

// AggregateScore is the mean of all soft scores.
func (r *JudgeReport) AggregateScore() float64 {
	if len(r.SoftScores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r.SoftScores {
		sum += v
	}
	return sum / float64(len(r.SoftScores))
}

// Transition is one recorded state change.
type Transition struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Session is the single persisted artifact for one story generation run.
type Session struct {
	Id            string       `json:"session_id"`
	State         string       `json:"state"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	RawRequest    string       `json:"raw_request"`
	RequestSpec   *RequestSpec `json:"request_spec,omitempty"`
	Plan          *Plan        `json:"plan,omitempty"`
	DraftHistory  []Draft      `json:"draft_history"`
	JudgeReports  []JudgeReport `json:"judge_reports"`
	FinalStory    string       `json:"final_story,omitempty"`
	BestEffort    bool         `json:"best_effort,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	UserFeedback  string       `json:"user_feedback,omitempty"`
	Transitions   []Transition `json:"transitions"`
}

// NewSession creates a fresh session in INIT.
func NewSession(rawRequest string) *Session {
	now := time.Now().UTC()
	return &Session{
		Id:         uuid.NewString(),
		State:      StateInit,
		CreatedAt:  now,
		UpdatedAt:  now,
		RawRequest: rawRequest,
		Transitions: []Transition{
			{From: "", To: StateInit, Reason: "created", At: now},
		},
	}
}

// Transition moves the session to a new state and records it.
func (s *Session) Transition(to, reason string) {
	now := time.Now().UTC()
	s.Transitions = append(s.Transitions, Transition{From: s.State, To: to, Reason: reason, At: now})
	s.State = to
	s.UpdatedAt = now
}

// Terminal reports whether the session reached an end state.
func (s *Session) Terminal() bool {
	return s.State == StateFinalized || s.State == StateFailed || s.State == StateAborted
}

// LatestDraft returns the most recent draft, or nil if none exists.
func (s *Session) LatestDraft() *Draft {
	if len(s.DraftHistory) == 0 {
		return nil
	}
	return &s.DraftHistory[len(s.DraftHistory)-1]
}

// FinalDraft returns the draft the published final story came from. The
// best-effort fallback can publish an earlier draft than the latest one.
func (s *Session) FinalDraft() *Draft {
	for i := len(s.DraftHistory) - 1; i >= 0; i-- {
		if s.DraftHistory[i].Text == s.FinalStory {
			return &s.DraftHistory[i]
		}
	}
	return s.LatestDraft()
}

// AppendDraft appends a draft, enforcing the gapless 0-based revision chain.
func (s *Session) AppendDraft(d Draft) error {
	if d.RevisionIndex != len(s.DraftHistory) {
		return fmt.Errorf("draft revision_index %d breaks the chain (expected %d)", d.RevisionIndex, len(s.DraftHistory))
	}
	s.DraftHistory = append(s.DraftHistory, d)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendReport appends a judge report for the given draft version.
func (s *Session) AppendReport(r JudgeReport) {
	s.JudgeReports = append(s.JudgeReports, r)
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy. The engine mutates a clone, persists it, and
// only then swaps it in, so a failed write never advances in-memory state.
func (s *Session) Clone() *Session {
	c := *s
	c.DraftHistory = append([]Draft(nil), s.DraftHistory...)
	c.JudgeReports = append([]JudgeReport(nil), s.JudgeReports...)
	c.Transitions = append([]Transition(nil), s.Transitions...)
	if s.RequestSpec != nil {
		spec := *s.RequestSpec
		c.RequestSpec = &spec
	}
	if s.Plan != nil {
		plan := *s.Plan
		plan.Beats = append([]PlanBeat(nil), s.Plan.Beats...)
		c.Plan = &plan
	}
	return &c
}
