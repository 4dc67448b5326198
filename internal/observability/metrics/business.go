package metrics

import "time"

// RecordPipelineRequest records a completed or failed pipeline run.
// Outcome should be either "completed" or "failed".
func RecordPipelineRequest(outcome string) {
	PipelineRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordStageDuration records the time taken by a pipeline stage.
// This helps identify which stage dominates end-to-end latency.
func RecordStageDuration(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordArticleTextSize records the size of extracted article text.
func RecordArticleTextSize(size int) {
	ArticleTextSize.Observe(float64(size))
}

// RecordProviderRequest records a model provider API call.
// Status should be either "success" or "failure".
func RecordProviderRequest(provider, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	ProviderRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	ProviderRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordArticleFetchSuccess records a successful article fetch.
func RecordArticleFetchSuccess(duration time.Duration, size int) {
	ArticleFetchAttemptsTotal.WithLabelValues("success").Inc()
	ArticleFetchDuration.Observe(duration.Seconds())
	RecordArticleTextSize(size)
}

// RecordArticleFetchFailed records a failed article fetch.
func RecordArticleFetchFailed(duration time.Duration) {
	ArticleFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ArticleFetchDuration.Observe(duration.Seconds())
}
