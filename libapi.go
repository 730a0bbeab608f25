package floodgate

import (
	queuepkg "github.com/tradewatch/floodgate/internal/queue"
	configpkg "github.com/tradewatch/floodgate/internal/queue/config"
	errspkg "github.com/tradewatch/floodgate/internal/queue/errors"
	idspkg "github.com/tradewatch/floodgate/internal/queue/ids"
	jsoncodec "github.com/tradewatch/floodgate/internal/queue/jsoncodec"
	loggingpkg "github.com/tradewatch/floodgate/internal/queue/logging"
	metadatapkg "github.com/tradewatch/floodgate/internal/queue/metadata"
	metricspkg "github.com/tradewatch/floodgate/internal/queue/metrics"
)

type (
	Config       = configpkg.Config
	Strategy     = configpkg.Strategy
	Queue        = queuepkg.Queue
	Dependencies = queuepkg.Dependencies
	Handler      = queuepkg.Handler
	State        = queuepkg.State

	QueuedMessage = queuepkg.QueuedMessage
	Priority      = queuepkg.Priority
	EnqueueOption = queuepkg.EnqueueOption
	EnqueueResult = queuepkg.EnqueueResult
	FailureReason = queuepkg.FailureReason

	Event      = queuepkg.Event
	EventType  = queuepkg.EventType
	Listener   = queuepkg.Listener
	DropReason = queuepkg.DropReason

	Statistics    = queuepkg.Statistics
	StatsSnapshot = queuepkg.StatsSnapshot
	ResourceUsage = queuepkg.ResourceUsage

	MiddlewareBuilder      = queuepkg.MiddlewareBuilder
	MiddlewareRegistration = queuepkg.MiddlewareRegistration
	ProcessorMiddleware    = queuepkg.ProcessorMiddleware

	// Message lifecycle hooks
	MessageContext  = queuepkg.MessageContext
	ProcessingHooks = queuepkg.ProcessingHooks

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
	NopLogger     = loggingpkg.NopLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// Prometheus collectors
	QueueMetrics = metricspkg.QueueMetrics
)

const (
	StrategyDropOldest = configpkg.StrategyDropOldest
	StrategyDropNewest = configpkg.StrategyDropNewest
	StrategyBlock      = configpkg.StrategyBlock
	StrategyError      = configpkg.StrategyError

	StateIdle       = queuepkg.StateIdle
	StateProcessing = queuepkg.StateProcessing
	StatePaused     = queuepkg.StatePaused
	StateBlocked    = queuepkg.StateBlocked
	StateDisposed   = queuepkg.StateDisposed

	PriorityLow    = queuepkg.PriorityLow
	PriorityNormal = queuepkg.PriorityNormal
	PriorityHigh   = queuepkg.PriorityHigh

	EventEnqueued          = queuepkg.EventEnqueued
	EventProcessed         = queuepkg.EventProcessed
	EventBatchProcessed    = queuepkg.EventBatchProcessed
	EventDropped           = queuepkg.EventDropped
	EventBackpressureStart = queuepkg.EventBackpressureStart
	EventBackpressureEnd   = queuepkg.EventBackpressureEnd
	EventStateChange       = queuepkg.EventStateChange
	EventQueueEmpty        = queuepkg.EventQueueEmpty
	EventProcessingError   = queuepkg.EventProcessingError

	ReasonQueueFull = queuepkg.ReasonQueueFull
	ReasonDisposed  = queuepkg.ReasonDisposed
	ReasonCancelled = queuepkg.ReasonCancelled

	DropReasonBackpressure = queuepkg.DropReasonBackpressure
	DropReasonCleared      = queuepkg.DropReasonCleared

	MetadataKeyCorrelationID = queuepkg.MetadataKeyCorrelationID
)

var (
	NewQueue       = queuepkg.New
	TryNewQueue    = queuepkg.TryNew
	ValidateConfig = configpkg.ValidateConfig

	// Shared process-wide instance
	Shared      = queuepkg.Shared
	SetShared   = queuepkg.SetShared
	ResetShared = queuepkg.ResetShared

	// Enqueue options
	WithID            = queuepkg.WithID
	WithPriority      = queuepkg.WithPriority
	WithMetadata      = queuepkg.WithMetadata
	WithMetadataValue = queuepkg.WithMetadataValue

	ParsePriority   = queuepkg.ParsePriority
	CalculateHealth = queuepkg.CalculateHealth

	// Middleware
	DefaultMiddlewares      = queuepkg.DefaultMiddlewares
	CorrelationIDMiddleware = queuepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = queuepkg.LogMessagesMiddleware
	TracerMiddleware        = queuepkg.TracerMiddleware
	RecovererMiddleware     = queuepkg.RecovererMiddleware

	// Message lifecycle hooks
	HooksMiddleware = queuepkg.HooksMiddleware
	LoggingHooks    = queuepkg.LoggingHooks
	MetricsHooks    = queuepkg.MetricsHooks
	AlertingHooks   = queuepkg.AlertingHooks

	// Prometheus collectors
	NewQueueMetrics = metricspkg.NewQueueMetrics
	ObserveMetrics  = metricspkg.Observe
	MetricsHandler  = metricspkg.Handler

	// Logging
	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewWatermillAdapter  = loggingpkg.NewWatermillAdapter

	// Sentinel errors
	ErrQueueFull         = errspkg.ErrQueueFull
	ErrDisposed          = errspkg.ErrDisposed
	ErrProcessorRequired = errspkg.ErrProcessorRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrSourceRequired    = errspkg.ErrSourceRequired
	ErrSinkRequired      = errspkg.ErrSinkRequired

	// Identifiers and JSON helpers shared with sources
	CreateULID    = idspkg.CreateULID
	MarshalJSON   = jsoncodec.Marshal
	UnmarshalJSON = jsoncodec.Unmarshal

	NewMetadata = metadatapkg.New
)
