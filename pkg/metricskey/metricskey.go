package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsDispatchSucceeded is base for counter metric for successful upstream requests
	StatsDispatchSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_dispatch_succeeded",
		Help:         "stats_dispatch_succeeded provides total upstream requests with 2xx status",
		RequiredTags: []string{"connection", "method"},
	}

	StatsDispatchFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_dispatch_failed",
		Help:         "stats_dispatch_failed provides total upstream requests failed by status or transport",
		RequiredTags: []string{"connection", "method", "code"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsRunsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_runs_succeeded",
		Help:         "stats_runs_succeeded provides total runner executions succeeded",
		RequiredTags: []string{"model"},
	}

	StatsRunsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_runs_failed",
		Help:         "stats_runs_failed provides total runner executions failed",
		RequiredTags: []string{"model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"model"},
	}
)

// Perf
var (
	PerfDispatch = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_dispatch",
		Help:         "perf_dispatch provides duration of upstream request",
		RequiredTags: []string{"connection"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_run",
		Help:         "perf_run provides duration of runner execution",
		RequiredTags: []string{"model"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfDispatch,
	&PerfRun,
	&PerfToolCall,
	&StatsDispatchFailed,
	&StatsDispatchSucceeded,
	&StatsLLMInputTokens,
	&StatsLLMOutputTokens,
	&StatsRunsFailed,
	&StatsRunsSucceeded,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
