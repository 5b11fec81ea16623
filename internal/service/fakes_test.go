package service

import (
	"context"
	"sync"
	"time"

	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/repository"
)

type fakeCallRepo struct {
	mu      sync.Mutex
	records map[string]*model.CallRecord

	pendingByAgentPhone map[string]*model.CallRecord
	batchCandidates     map[string][]model.CallRecord

	created   []model.CreateCallParams
	fills     map[string]model.CompletionFill
	failed    map[string]string
	metadata  map[string]model.Metadata
	ratings   map[string]model.LeadRating
	findErr   error
	createErr error
	fillErr   error // consumed by the first FillCompletion call
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{
		records:             map[string]*model.CallRecord{},
		pendingByAgentPhone: map[string]*model.CallRecord{},
		batchCandidates:     map[string][]model.CallRecord{},
		fills:               map[string]model.CompletionFill{},
		failed:              map[string]string{},
		metadata:            map[string]model.Metadata{},
		ratings:             map[string]model.LeadRating{},
	}
}

func (f *fakeCallRepo) Create(_ context.Context, params model.CreateCallParams) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params)
	rec := &model.CallRecord{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		FromNumber:     params.FromNumber,
		ToNumber:       params.ToNumber,
		Direction:      params.Direction,
		Status:         params.Status,
		UserID:         params.UserID,
		CampaignID:     params.CampaignID,
		ConnectionID:   params.ConnectionID,
		Metadata:       params.Metadata,
	}
	f.records[params.ID] = rec
	return rec, nil
}

func (f *fakeCallRepo) FindByID(_ context.Context, id string) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id], f.findErr
}

func (f *fakeCallRepo) FindByConversationID(_ context.Context, conversationID string) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ConversationID != nil && *rec.ConversationID == conversationID {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeCallRepo) ClaimConversationID(_ context.Context, id, conversationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.ConversationID != nil {
		return false, nil
	}
	rec.ConversationID = &conversationID
	return true, nil
}

func (f *fakeCallRepo) FindLatestPendingOutboundByAgentPhone(_ context.Context, agentID, phone string) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingByAgentPhone[agentID+"|"+phone], nil
}

func (f *fakeCallRepo) FindPendingOutboundByBatchID(_ context.Context, batchID string) ([]model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCandidates[batchID], nil
}

func (f *fakeCallRepo) FillCompletion(_ context.Context, id string, fill model.CompletionFill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fillErr != nil {
		err := f.fillErr
		f.fillErr = nil
		return err
	}
	f.fills[id] = fill
	return nil
}

func (f *fakeCallRepo) UpdateStatus(_ context.Context, id string, status model.CallStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[id]; ok {
		rec.Status = status
	}
	return nil
}

func (f *fakeCallRepo) UpdateStatusFromCallback(_ context.Context, id string, status model.CallStatus, _ int, _ *string) error {
	return f.UpdateStatus(context.Background(), id, status)
}

func (f *fakeCallRepo) SetTelephonyLegID(context.Context, string, string) error { return nil }

func (f *fakeCallRepo) UpdateTranscriptIfNotMeaningful(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *fakeCallRepo) SetLeadRatingIfEmpty(_ context.Context, id string, rating model.LeadRating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ratings[id]; !ok {
		f.ratings[id] = rating
	}
	return nil
}

func (f *fakeCallRepo) MergeMetadata(_ context.Context, id string, meta model.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.metadata[id]
	if !ok {
		existing = model.Metadata{}
		f.metadata[id] = existing
	}
	for k, v := range meta {
		existing[k] = v
	}
	return nil
}

func (f *fakeCallRepo) MarkFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	if rec, ok := f.records[id]; ok {
		rec.Status = model.CallStatusFailed
	}
	return nil
}

func (f *fakeCallRepo) MarkStalePendingNoAnswer(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeAgentRepo struct {
	agents map[string]*model.Agent
}

func (f *fakeAgentRepo) FindByID(_ context.Context, id string) (*model.Agent, error) {
	for _, a := range f.agents {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAgentRepo) FindByEngineAgentID(_ context.Context, engineAgentID string) (*model.Agent, error) {
	return f.agents[engineAgentID], nil
}

type fakeCampaignRepo struct {
	mostRecent map[string]*model.Campaign
}

func (f *fakeCampaignRepo) FindByID(context.Context, string) (*model.Campaign, error) {
	return nil, nil
}

func (f *fakeCampaignRepo) FindMostRecentStartedByAgentID(_ context.Context, agentID string) (*model.Campaign, error) {
	return f.mostRecent[agentID], nil
}

type fakeConnectionRepo struct {
	byAgentNumber map[string]*model.PhoneConnection
	firstByAgent  map[string]*model.PhoneConnection
}

func (f *fakeConnectionRepo) FindByID(context.Context, string) (*model.PhoneConnection, error) {
	return nil, nil
}

func (f *fakeConnectionRepo) FindByAgentIDAndNumber(_ context.Context, agentID, number string) (*model.PhoneConnection, error) {
	return f.byAgentNumber[agentID+"|"+number], nil
}

func (f *fakeConnectionRepo) FindFirstByAgentID(_ context.Context, agentID string) (*model.PhoneConnection, error) {
	return f.firstByAgent[agentID], nil
}

type fakeFlowRepo struct {
	mu        sync.Mutex
	byCallID  map[string]*model.FlowExecution
	completed []string
}

func (f *fakeFlowRepo) FindByCallID(_ context.Context, callID string) (*model.FlowExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byCallID[callID], nil
}

func (f *fakeFlowRepo) MarkRunning(context.Context, string) error { return nil }

func (f *fakeFlowRepo) Complete(_ context.Context, id string, _ model.Variables, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeFlowRepo) MarkFailed(context.Context, string) error { return nil }

// fakeDeduper implements EventDeduper over an in-memory claim set.
type fakeDeduper struct {
	mu       sync.Mutex
	claims   map[string]bool
	claimErr error
	releases int
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{claims: map[string]bool{}}
}

func (f *fakeDeduper) ClaimCompletionEvent(_ context.Context, conversationID, eventType string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	key := conversationID + ":" + eventType
	if f.claims[key] {
		return false, nil
	}
	f.claims[key] = true
	return true, nil
}

func (f *fakeDeduper) ReleaseCompletionEvent(_ context.Context, conversationID, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, conversationID+":"+eventType)
	f.releases++
	return nil
}

// fakeLedger implements CreditLedger with a scripted outcome.
type fakeLedger struct {
	mu     sync.Mutex
	result BillingResult
	err    error
	calls  []string
}

func (f *fakeLedger) Deduct(_ context.Context, _, callID string, _ int, _ float64) (BillingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, callID)
	if f.err != nil {
		return BillingResult{}, f.err
	}
	return f.result, nil
}

// fakeLedgerRepo implements repository.LedgerRepository for CreditService tests.
type fakeLedgerRepo struct {
	mu      sync.Mutex
	outcome repository.DeductOutcome
	err     error
	amounts []float64
}

func (f *fakeLedgerRepo) DeductForCall(_ context.Context, _, _ string, amount float64) (repository.DeductOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amounts = append(f.amounts, amount)
	if f.err != nil {
		return repository.DeductOutcome{}, f.err
	}
	return f.outcome, nil
}
