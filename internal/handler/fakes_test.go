package handler

import (
	"context"
	"sync"
	"time"

	"github.com/voxlane/call-bridge-go/internal/model"
	"github.com/voxlane/call-bridge-go/internal/service"
)

type fakeCallRepo struct {
	mu       sync.Mutex
	records  map[string]*model.CallRecord
	created  []model.CreateCallParams
	statuses map[string]model.CallStatus
	fills    map[string]model.CompletionFill
	failed   map[string]string
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{
		records:  map[string]*model.CallRecord{},
		statuses: map[string]model.CallStatus{},
		fills:    map[string]model.CompletionFill{},
		failed:   map[string]string{},
	}
}

func (f *fakeCallRepo) Create(_ context.Context, params model.CreateCallParams) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	rec := &model.CallRecord{
		ID:          params.ID,
		FromNumber:  params.FromNumber,
		ToNumber:    params.ToNumber,
		ContactName: params.ContactName,
		Direction:   params.Direction,
		Status:      params.Status,
		UserID:      params.UserID,
		CampaignID:  params.CampaignID,
		Metadata:    params.Metadata,
	}
	f.records[params.ID] = rec
	return rec, nil
}

func (f *fakeCallRepo) FindByID(_ context.Context, id string) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id], nil
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

func (f *fakeCallRepo) FindLatestPendingOutboundByAgentPhone(context.Context, string, string) (*model.CallRecord, error) {
	return nil, nil
}

func (f *fakeCallRepo) FindPendingOutboundByBatchID(context.Context, string) ([]model.CallRecord, error) {
	return nil, nil
}

func (f *fakeCallRepo) FillCompletion(_ context.Context, id string, fill model.CompletionFill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fills[id] = fill
	return nil
}

func (f *fakeCallRepo) UpdateStatus(_ context.Context, id string, status model.CallStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeCallRepo) UpdateStatusFromCallback(_ context.Context, id string, status model.CallStatus, _ int, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeCallRepo) SetTelephonyLegID(context.Context, string, string) error { return nil }

func (f *fakeCallRepo) UpdateTranscriptIfNotMeaningful(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *fakeCallRepo) SetLeadRatingIfEmpty(context.Context, string, model.LeadRating) error {
	return nil
}

func (f *fakeCallRepo) MergeMetadata(context.Context, string, model.Metadata) error { return nil }

func (f *fakeCallRepo) MarkFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
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

type fakeCampaignRepo struct{}

func (fakeCampaignRepo) FindByID(context.Context, string) (*model.Campaign, error) {
	return nil, nil
}

func (fakeCampaignRepo) FindMostRecentStartedByAgentID(context.Context, string) (*model.Campaign, error) {
	return nil, nil
}

type fakeConnectionRepo struct{}

func (fakeConnectionRepo) FindByID(context.Context, string) (*model.PhoneConnection, error) {
	return nil, nil
}

func (fakeConnectionRepo) FindByAgentIDAndNumber(context.Context, string, string) (*model.PhoneConnection, error) {
	return nil, nil
}

func (fakeConnectionRepo) FindFirstByAgentID(context.Context, string) (*model.PhoneConnection, error) {
	return nil, nil
}

type fakeFlowRepo struct{}

func (fakeFlowRepo) FindByCallID(context.Context, string) (*model.FlowExecution, error) {
	return nil, nil
}

func (fakeFlowRepo) MarkRunning(context.Context, string) error { return nil }

func (fakeFlowRepo) Complete(context.Context, string, model.Variables, []string) error { return nil }

func (fakeFlowRepo) MarkFailed(context.Context, string) error { return nil }

type fakeLedger struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeLedger) Deduct(_ context.Context, _, callID string, _ int, _ float64) (service.BillingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, callID)
	return service.BillingResult{Success: true}, nil
}
