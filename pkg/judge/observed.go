package judge

import "context"

// Observer receives the outcome of every judge call.
type Observer interface {
	ObserveJudgeCall(metric string, ok bool)
}

// ObservedJudge reports each call on next to an Observer.
type ObservedJudge struct {
	next     Judge
	observer Observer
}

func NewObservedJudge(next Judge, observer Observer) *ObservedJudge {
	return &ObservedJudge{next: next, observer: observer}
}

func (o *ObservedJudge) Relevancy(ctx context.Context, c Case) (float64, error) {
	score, err := o.next.Relevancy(ctx, c)
	o.observer.ObserveJudgeCall(string(MetricRelevancy), err == nil)
	return score, err
}

func (o *ObservedJudge) Correctness(ctx context.Context, c Case) (float64, error) {
	score, err := o.next.Correctness(ctx, c)
	o.observer.ObserveJudgeCall(string(MetricCorrectness), err == nil)
	return score, err
}

var _ Judge = (*ObservedJudge)(nil)
