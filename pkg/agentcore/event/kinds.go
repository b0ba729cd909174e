package event

import "github.com/google/uuid"

func newInvocationID() string {
	return uuid.NewString()
}

// Canonical payload keys for the kind-specific fields of each event type.
// Producers and consumers dispatch on the event type discriminant and read
// these keys rather than probing payload shape.
const (
	KeyToolName       = "tool_name"
	KeyToolVersion    = "tool_version"
	KeyInvocationID   = "invocation_id"
	KeyInputArgs      = "input_args"
	KeyOutputSummary  = "output_summary"
	KeyCallID         = "call_id"
	KeyModelName      = "model_name"
	KeyProvider       = "provider"
	KeyPromptTokens   = "prompt_tokens"
	KeyOutputTokens   = "completion_tokens"
	KeyChunkIndex     = "chunk_index"
	KeyDelta          = "delta"
	KeyIsFinal        = "is_final"
	KeyMemoryKey      = "memory_key"
	KeyMemoryScope    = "memory_scope"
	KeyDelegationID   = "delegation_id"
	KeyTargetAgentID  = "target_agent_id"
	KeyTaskSummary    = "task_summary"
	KeyApprovalID     = "approval_id"
	KeyActionSummary  = "action_summary"
	KeyApproved       = "approved"
	KeyReviewerID     = "reviewer_id"
	KeyDecision       = "decision"
	KeyReasoning      = "reasoning"
	KeyConfidence     = "confidence"
	KeyRuntime        = "runtime"
	KeyEntrypoint     = "entrypoint"
	KeyDurationMillis = "duration_ms"
	KeyErrorType      = "error_type"
	KeyErrorMessage   = "error_message"
	KeyCostUSD        = "cost_usd"
)

// requiredPayloadFields is the tagged-union table: the event type selects
// which payload fields are mandatory at construction. Types mapped to an
// empty slice are valid with any (or no) payload.
var requiredPayloadFields = map[EventType][]string{
	AgentStarted:   {},
	AgentCompleted: {},
	AgentFailed:    {KeyErrorMessage},
	AgentPaused:    {},
	AgentResumed:   {},

	LLMCalled:      {KeyModelName},
	LLMResponded:   {KeyModelName},
	LLMStreamChunk: {KeyCallID},

	ToolInvoked:   {KeyToolName},
	ToolCompleted: {KeyToolName},
	ToolFailed:    {KeyToolName, KeyErrorMessage},

	MemoryRead:    {KeyMemoryKey},
	MemoryWritten: {KeyMemoryKey},
	MemoryEvicted: {KeyMemoryKey},

	DelegationRequested: {KeyTargetAgentID},
	DelegationCompleted: {KeyDelegationID},
	DelegationFailed:    {KeyDelegationID, KeyErrorMessage},

	ApprovalRequested: {KeyActionSummary},
	ApprovalResolved:  {KeyApprovalID},

	DecisionMade: {KeyDecision},
}

var allTypes = func() []EventType {
	out := make([]EventType, 0, len(requiredPayloadFields))
	for t := range requiredPayloadFields {
		out = append(out, t)
	}
	return out
}()

// RequiredPayloadFields returns the payload fields mandatory for the given
// event type, or nil for types outside the taxonomy. The slice is a copy.
func RequiredPayloadFields(t EventType) []string {
	fields, ok := requiredPayloadFields[t]
	if !ok {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// Kind-specific constructors. Each places the mandatory discriminated fields
// into the payload under their canonical keys and delegates to New for
// validation; extra payload entries go through WithPayload merging manually.

// NewAgentStarted builds an agent_started envelope.
func NewAgentStarted(agentID, runtime, entrypoint string, opts ...Option) (Envelope, error) {
	return New(AgentStarted, agentID, withKindPayload(map[string]any{
		KeyRuntime:    runtime,
		KeyEntrypoint: entrypoint,
	}, opts)...)
}

// NewAgentCompleted builds an agent_completed envelope.
func NewAgentCompleted(agentID string, durationMillis float64, outputSummary string, opts ...Option) (Envelope, error) {
	return New(AgentCompleted, agentID, withKindPayload(map[string]any{
		KeyDurationMillis: durationMillis,
		KeyOutputSummary:  outputSummary,
	}, opts)...)
}

// NewAgentFailed builds an agent_failed envelope.
func NewAgentFailed(agentID, errorType, errorMessage string, opts ...Option) (Envelope, error) {
	return New(AgentFailed, agentID, withKindPayload(map[string]any{
		KeyErrorType:    errorType,
		KeyErrorMessage: errorMessage,
	}, opts)...)
}

// NewAgentPaused builds an agent_paused envelope.
func NewAgentPaused(agentID string, opts ...Option) (Envelope, error) {
	return New(AgentPaused, agentID, opts...)
}

// NewAgentResumed builds an agent_resumed envelope.
func NewAgentResumed(agentID string, opts ...Option) (Envelope, error) {
	return New(AgentResumed, agentID, opts...)
}

// NewToolInvoked builds a tool_invoked envelope.
func NewToolInvoked(agentID, toolName string, inputArgs map[string]any, opts ...Option) (Envelope, error) {
	return New(ToolInvoked, agentID, withKindPayload(map[string]any{
		KeyToolName:     toolName,
		KeyInvocationID: newInvocationID(),
		KeyInputArgs:    inputArgs,
	}, opts)...)
}

// NewToolCompleted builds a tool_completed envelope.
func NewToolCompleted(agentID, toolName string, durationMillis float64, opts ...Option) (Envelope, error) {
	return New(ToolCompleted, agentID, withKindPayload(map[string]any{
		KeyToolName:       toolName,
		KeyDurationMillis: durationMillis,
	}, opts)...)
}

// NewToolFailed builds a tool_failed envelope.
func NewToolFailed(agentID, toolName, errorMessage string, opts ...Option) (Envelope, error) {
	return New(ToolFailed, agentID, withKindPayload(map[string]any{
		KeyToolName:     toolName,
		KeyErrorMessage: errorMessage,
	}, opts)...)
}

// NewLLMCalled builds an llm_called envelope.
func NewLLMCalled(agentID, modelName, provider string, opts ...Option) (Envelope, error) {
	return New(LLMCalled, agentID, withKindPayload(map[string]any{
		KeyCallID:    newInvocationID(),
		KeyModelName: modelName,
		KeyProvider:  provider,
	}, opts)...)
}

// NewLLMResponded builds an llm_responded envelope.
func NewLLMResponded(agentID, modelName string, promptTokens, completionTokens int, opts ...Option) (Envelope, error) {
	return New(LLMResponded, agentID, withKindPayload(map[string]any{
		KeyModelName:    modelName,
		KeyPromptTokens: promptTokens,
		KeyOutputTokens: completionTokens,
	}, opts)...)
}

// NewLLMStreamChunk builds an llm_stream_chunk envelope correlated to the
// llm_called event via callID.
func NewLLMStreamChunk(agentID, callID string, chunkIndex int, delta string, isFinal bool, opts ...Option) (Envelope, error) {
	return New(LLMStreamChunk, agentID, withKindPayload(map[string]any{
		KeyCallID:     callID,
		KeyChunkIndex: chunkIndex,
		KeyDelta:      delta,
		KeyIsFinal:    isFinal,
	}, opts)...)
}

// NewMemoryRead builds a memory_read envelope.
func NewMemoryRead(agentID, memoryKey, memoryScope string, opts ...Option) (Envelope, error) {
	return New(MemoryRead, agentID, withKindPayload(map[string]any{
		KeyMemoryKey:   memoryKey,
		KeyMemoryScope: memoryScope,
	}, opts)...)
}

// NewMemoryWritten builds a memory_written envelope.
func NewMemoryWritten(agentID, memoryKey, memoryScope string, opts ...Option) (Envelope, error) {
	return New(MemoryWritten, agentID, withKindPayload(map[string]any{
		KeyMemoryKey:   memoryKey,
		KeyMemoryScope: memoryScope,
	}, opts)...)
}

// NewDelegationRequested builds a delegation_requested envelope.
func NewDelegationRequested(agentID, targetAgentID, taskSummary string, opts ...Option) (Envelope, error) {
	return New(DelegationRequested, agentID, withKindPayload(map[string]any{
		KeyDelegationID:  newInvocationID(),
		KeyTargetAgentID: targetAgentID,
		KeyTaskSummary:   taskSummary,
	}, opts)...)
}

// NewMemoryEvicted builds a memory_evicted envelope.
func NewMemoryEvicted(agentID, memoryKey, memoryScope string, opts ...Option) (Envelope, error) {
	return New(MemoryEvicted, agentID, withKindPayload(map[string]any{
		KeyMemoryKey:   memoryKey,
		KeyMemoryScope: memoryScope,
	}, opts)...)
}

// NewDelegationCompleted builds a delegation_completed envelope correlated to
// the delegation_requested event via delegationID.
func NewDelegationCompleted(agentID, delegationID string, durationMillis float64, opts ...Option) (Envelope, error) {
	return New(DelegationCompleted, agentID, withKindPayload(map[string]any{
		KeyDelegationID:   delegationID,
		KeyDurationMillis: durationMillis,
	}, opts)...)
}

// NewDelegationFailed builds a delegation_failed envelope.
func NewDelegationFailed(agentID, delegationID, errorMessage string, opts ...Option) (Envelope, error) {
	return New(DelegationFailed, agentID, withKindPayload(map[string]any{
		KeyDelegationID: delegationID,
		KeyErrorMessage: errorMessage,
	}, opts)...)
}

// NewApprovalRequested builds an approval_requested envelope.
func NewApprovalRequested(agentID, actionSummary string, opts ...Option) (Envelope, error) {
	return New(ApprovalRequested, agentID, withKindPayload(map[string]any{
		KeyApprovalID:    newInvocationID(),
		KeyActionSummary: actionSummary,
	}, opts)...)
}

// NewApprovalResolved builds an approval_resolved envelope.
func NewApprovalResolved(agentID, approvalID string, approved bool, opts ...Option) (Envelope, error) {
	return New(ApprovalResolved, agentID, withKindPayload(map[string]any{
		KeyApprovalID: approvalID,
		KeyApproved:   approved,
	}, opts)...)
}

// NewDecisionMade builds a decision_made envelope.
func NewDecisionMade(agentID, decision, reasoning string, opts ...Option) (Envelope, error) {
	return New(DecisionMade, agentID, withKindPayload(map[string]any{
		KeyDecision:  decision,
		KeyReasoning: reasoning,
	}, opts)...)
}

// withKindPayload prepends an option that merges the kind fields into any
// caller-supplied payload; caller entries win on key collision so options
// like WithPayload can still override defaults such as generated call IDs.
func withKindPayload(kind map[string]any, opts []Option) []Option {
	merge := func(e *Envelope) {
		merged := make(map[string]any, len(kind)+len(e.Payload))
		for k, v := range kind {
			merged[k] = v
		}
		// Merge into a fresh map; the map handed to WithPayload still
		// belongs to the caller and must not gain kind entries.
		for k, v := range e.Payload {
			merged[k] = v
		}
		e.Payload = merged
	}
	// Kind merging must run after caller options have set the payload.
	return append(append([]Option{}, opts...), merge)
}
