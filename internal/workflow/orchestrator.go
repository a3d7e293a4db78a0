// Package workflow sequences one analysis request through fetching,
// interpretation, scoring, answer generation, planning and progress
// tracking. Steps run under bounded timeouts with a small retry budget for
// transient failures, and a failed step degrades the result instead of
// aborting the run: the response always reports every outcome that could be
// produced, with Success false when any content step died.
package workflow

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"careerflow/internal/agent"
	"careerflow/internal/ai"
	"careerflow/internal/config"
	"careerflow/internal/errors"
	"careerflow/internal/fetch"
	"careerflow/internal/interpret"
	"careerflow/internal/observability"
	"careerflow/internal/types"
)

// Fetcher retrieves a job posting's readable text.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Scorer produces a match result for a resume/job pair. Implementations are
// expected to degrade internally where they can and only error when no
// result is producible.
type Scorer interface {
	Score(ctx context.Context, resume types.ResumeProfile, job types.JobProfile) (*types.MatchResult, *ai.TokenUsage, error)
}

// AnswerGenerator produces tailored application answers, one per question.
type AnswerGenerator interface {
	GenerateAnswers(ctx context.Context, resumeText, jobText string, questions []string) (*types.TailoredAnswerSet, *ai.TokenUsage, error)
}

// ImprovementAdvisor suggests concrete resume fixes. Optional.
type ImprovementAdvisor interface {
	SuggestResumeImprovements(ctx context.Context, resumeText string) ([]string, *ai.TokenUsage, error)
}

// ProgressTracker reads and advances per-user career history.
type ProgressTracker interface {
	History(ctx context.Context, userID string) (types.ProgressRecord, bool, error)
	Update(ctx context.Context, userID string, state types.AgentState, score *float64) (types.ProgressRecord, error)
}

// Deps are the orchestrator's collaborators. Advisor may be nil; everything
// else is required.
type Deps struct {
	Fetcher  Fetcher
	Scorer   Scorer
	Answers  AnswerGenerator
	Advisor  ImprovementAdvisor
	Tracker  ProgressTracker
	Learning *agent.GlobalLearning
}

type Orchestrator struct {
	cfg    config.WorkflowConfig
	deps   Deps
	om     *observability.ObservabilityManager
	logger *errors.Logger
}

func NewOrchestrator(deps Deps, cfg config.WorkflowConfig, om *observability.ObservabilityManager, logger *errors.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps, om: om, logger: logger}
}

// trackAI instruments one model-backed call with the AI operation metrics
// and token usage accounting.
func (o *Orchestrator) trackAI(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error {
	return o.om.GetMetrics().TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		usage, err := fn(ctx)
		return &observability.AIOperationResult{Error: err, TokenUsage: (*observability.TokenUsage)(usage)}
	}, o.om)
}

// runState collects everything the steps produce for one request.
type runState struct {
	req types.WorkflowRequest

	fetchStep   *stepResult
	resumeStep  *stepResult
	jobStep     *stepResult
	matchStep   *stepResult
	answersStep *stepResult
	trackStep   *stepResult

	jobText      string
	resume       *types.ResumeProfile
	job          *types.JobProfile
	strength     float64
	match        *types.MatchResult
	answers      *types.TailoredAnswerSet
	improvements []string

	interactions int
	strategy     string
	state        types.AgentState
	record       types.ProgressRecord
	trackerErr   error
}

// Run executes the full workflow. It never returns an error: failures land
// in the result's Success/Error fields and whatever partial content survived
// is still reported.
func (o *Orchestrator) Run(ctx context.Context, req types.WorkflowRequest) types.WorkflowResult {
	result := types.WorkflowResult{RunID: uuid.NewString()}
	if err := ValidateWorkflowRequest(req); err != nil {
		result.Error = err.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	tracer := o.om.Tracer("careerflow.workflow")
	ctx, span := tracer.Start(ctx, "workflow.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", result.RunID),
		attribute.Int("request.resume_length", len(req.ResumeText)),
		attribute.Int("request.questions", len(req.Questions)),
	)

	run := o.execute(ctx, req)
	o.assemble(&result, run)

	o.deps.Learning.RecordRun(run.match, run.state)
	metrics := o.om.GetMetrics()
	metrics.RecordWorkflowRun(ctx, result.Success, run.match != nil && run.match.Degraded, o.om)
	if score, ok := run.match.ScoreValue(); ok {
		metrics.RecordMatchScore(ctx, score, run.match.ScoringMethod, o.om)
	}
	if run.answers != nil {
		metrics.RecordAnswersGenerated(ctx, len(run.answers.Answers)-run.answers.FailedCount(), run.answers.FailedCount(), o.om)
	}
	if errors.IsConflictError(run.trackerErr) {
		metrics.RecordProgressConflict(ctx, o.om)
	}

	span.SetAttributes(
		attribute.Bool("success", result.Success),
		attribute.Int("goals", len(result.AgentGoals)),
		attribute.Int("obstacles", len(result.IdentifiedObstacles)),
	)
	if result.Error != "" {
		span.SetAttributes(attribute.String("workflow.error", result.Error))
	}
	return result
}

// execute runs the pipeline and fills the run state. Steps that lost their
// inputs to an upstream failure are skipped, everything else runs.
func (o *Orchestrator) execute(ctx context.Context, req types.WorkflowRequest) *runState {
	run := &runState{req: req}

	run.fetchStep = o.runStep(ctx, StepFetchJob, func(ctx context.Context) error {
		fetched, err := o.deps.Fetcher.Fetch(ctx, req.JobURL)
		if err != nil {
			return err
		}
		run.jobText = fetched.Text
		return nil
	})

	// Resume and job interpretation are independent; run them in parallel.
	// Errors stay in the step results so one branch failing never cancels
	// the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		run.resumeStep = o.runStep(gctx, StepInterpretResume, func(ctx context.Context) error {
			profile, err := interpret.InterpretResume(req.ResumeText)
			if err != nil {
				return err
			}
			run.resume = &profile
			return nil
		})
		return nil
	})
	g.Go(func() error {
		if !run.fetchStep.ok() {
			run.jobStep = skippedStep(StepInterpretJob, run.fetchStep.Err)
			return nil
		}
		run.jobStep = o.runStep(gctx, StepInterpretJob, func(ctx context.Context) error {
			profile, err := interpret.InterpretJob(req.JobURL, run.jobText)
			if err != nil {
				return err
			}
			run.job = &profile
			return nil
		})
		return nil
	})
	_ = g.Wait()

	if run.resume != nil {
		run.strength = interpret.ResumeStrength(*run.resume)
	}

	if run.resume != nil && run.job != nil {
		run.matchStep = o.runStep(ctx, StepScoreMatch, func(ctx context.Context) error {
			return o.trackAI(ctx, StepScoreMatch, func(ctx context.Context) (*ai.TokenUsage, error) {
				matchResult, usage, err := o.deps.Scorer.Score(ctx, *run.resume, *run.job)
				if err != nil {
					return usage, err
				}
				run.match = matchResult
				return usage, nil
			})
		})
	} else {
		run.matchStep = skippedStep(StepScoreMatch, firstError(run.fetchStep, run.resumeStep, run.jobStep))
	}

	if len(req.Questions) > 0 {
		if run.resume == nil || run.jobText == "" {
			run.answersStep = skippedStep(StepGenerateAnswers, firstError(run.fetchStep, run.resumeStep))
			run.answers = unansweredSet(req.Questions, "job posting content unavailable")
		} else {
			run.answersStep = o.runStep(ctx, StepGenerateAnswers, func(ctx context.Context) error {
				return o.trackAI(ctx, StepGenerateAnswers, func(ctx context.Context) (*ai.TokenUsage, error) {
					set, usage, err := o.deps.Answers.GenerateAnswers(ctx, req.ResumeText, run.jobText, req.Questions)
					if set != nil {
						run.answers = set
					}
					return usage, err
				})
			})
		}
	}

	prior, found, err := o.deps.Tracker.History(ctx, req.UserID)
	if err != nil {
		o.logger.Warn("Could not read progress history, planning from zero interactions",
			"user_id", req.UserID, "error", err.Error())
	} else if found {
		run.interactions = len(prior.History)
		run.record = prior
	}
	run.strategy = agent.StrategyAdaptation(prior.History)
	run.state = agent.Plan(run.match, run.answers, run.strength, run.interactions)

	if o.deps.Advisor != nil && run.resume != nil && run.state.HasObstacle(types.ObstacleWeakResume) {
		o.runStep(ctx, StepSuggestImprovements, func(ctx context.Context) error {
			return o.trackAI(ctx, StepSuggestImprovements, func(ctx context.Context) (*ai.TokenUsage, error) {
				suggestions, usage, err := o.deps.Advisor.SuggestResumeImprovements(ctx, req.ResumeText)
				if err != nil {
					return usage, err
				}
				run.improvements = suggestions
				return usage, nil
			})
		})
	}

	if ctx.Err() != nil {
		// A cancelled run must leave history untouched.
		run.trackStep = skippedStep(StepTrackProgress, ctx.Err())
		run.trackerErr = ctx.Err()
		return run
	}
	var score *float64
	if run.match != nil {
		score = run.match.Score
	}
	run.trackStep = o.runStep(ctx, StepTrackProgress, func(ctx context.Context) error {
		record, err := o.deps.Tracker.Update(ctx, req.UserID, run.state, score)
		run.trackerErr = err
		if err == nil || errors.IsConflictError(err) {
			run.record = record
		}
		if err != nil && !errors.IsConflictError(err) {
			return err
		}
		// Conflict exhaustion is a soft failure: the run proceeds with the
		// stored state and reports the conflict in the progress summary.
		return nil
	})
	return run
}

// ScoreOnly runs the fetch/interpret/score slice of the pipeline for
// POST /score. Unlike Run, hard failures propagate to the caller.
func (o *Orchestrator) ScoreOnly(ctx context.Context, req types.ScoreRequest) (*types.MatchResult, error) {
	if err := ValidateScoreRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	var jobText string
	step := o.runStep(ctx, StepFetchJob, func(ctx context.Context) error {
		fetched, err := o.deps.Fetcher.Fetch(ctx, req.JobURL)
		if err != nil {
			return err
		}
		jobText = fetched.Text
		return nil
	})
	if step.Err != nil {
		return nil, step.Err
	}

	resume, err := interpret.InterpretResume(req.ResumeText)
	if err != nil {
		return nil, err
	}
	job, err := interpret.InterpretJob(req.JobURL, jobText)
	if err != nil {
		return nil, err
	}

	var result *types.MatchResult
	step = o.runStep(ctx, StepScoreMatch, func(ctx context.Context) error {
		return o.trackAI(ctx, StepScoreMatch, func(ctx context.Context) (*ai.TokenUsage, error) {
			scored, usage, err := o.deps.Scorer.Score(ctx, resume, job)
			if err != nil {
				return usage, err
			}
			result = scored
			return usage, nil
		})
	})
	if step.Err != nil {
		return nil, step.Err
	}
	return result, nil
}

// AnswersOnly runs the fetch/answer slice of the pipeline for
// POST /tailored-answers. Partial failures return the marked set; an error
// comes back only when the request was bad or every question failed.
func (o *Orchestrator) AnswersOnly(ctx context.Context, req types.AnswersRequest) (*types.TailoredAnswerSet, error) {
	if err := ValidateAnswersRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	var jobText string
	step := o.runStep(ctx, StepFetchJob, func(ctx context.Context) error {
		fetched, err := o.deps.Fetcher.Fetch(ctx, req.JobURL)
		if err != nil {
			return err
		}
		jobText = fetched.Text
		return nil
	})
	if step.Err != nil {
		return nil, step.Err
	}

	var set *types.TailoredAnswerSet
	step = o.runStep(ctx, StepGenerateAnswers, func(ctx context.Context) error {
		return o.trackAI(ctx, StepGenerateAnswers, func(ctx context.Context) (*ai.TokenUsage, error) {
			generated, usage, err := o.deps.Answers.GenerateAnswers(ctx, req.ResumeText, jobText, req.Questions)
			if generated != nil {
				set = generated
			}
			return usage, err
		})
	})
	if step.Err != nil {
		return set, step.Err
	}
	return set, nil
}

// unansweredSet marks every question failed with the given reason, keeping
// the one-entry-per-question shape clients rely on.
func unansweredSet(questions []string, reason string) *types.TailoredAnswerSet {
	set := &types.TailoredAnswerSet{GenerationMethod: "skipped"}
	for _, q := range questions {
		set.Answers = append(set.Answers, types.TailoredAnswer{Question: q, Error: reason})
	}
	return set
}
