package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voxlane/call-bridge-go/internal/model"
)

// fakeSocket records writes and serves reads from a channel.
type fakeSocket struct {
	mu     sync.Mutex
	writes []any
	reads  chan []byte
	closed bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{reads: make(chan []byte, 16)}
}

func (f *fakeSocket) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("socket closed")
	}
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeSocket) ReadMessage() ([]byte, error) {
	data, ok := <-f.reads
	if !ok {
		return nil, errors.New("socket closed")
	}
	return data, nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.reads)
	}
	return nil
}

func (f *fakeSocket) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeSocket) written() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.writes))
	copy(out, f.writes)
	return out
}

// fakeCallRepo implements repository.CallRepository with overridable hooks.
type fakeCallRepo struct {
	mu       sync.Mutex
	records  map[string]*model.CallRecord
	metadata map[string]model.Metadata

	transcriptWritten map[string]string
	ratingWritten     map[string]model.LeadRating
	meaningful        map[string]bool
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{
		records:           map[string]*model.CallRecord{},
		metadata:          map[string]model.Metadata{},
		transcriptWritten: map[string]string{},
		ratingWritten:     map[string]model.LeadRating{},
		meaningful:        map[string]bool{},
	}
}

func (f *fakeCallRepo) Create(_ context.Context, params model.CreateCallParams) (*model.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &model.CallRecord{
		ID:         params.ID,
		FromNumber: params.FromNumber,
		ToNumber:   params.ToNumber,
		Direction:  params.Direction,
		Status:     params.Status,
		UserID:     params.UserID,
		CampaignID: params.CampaignID,
		Metadata:   params.Metadata,
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

func (f *fakeCallRepo) FillCompletion(context.Context, string, model.CompletionFill) error {
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

func (f *fakeCallRepo) UpdateStatusFromCallback(context.Context, string, model.CallStatus, int, *string) error {
	return nil
}

func (f *fakeCallRepo) SetTelephonyLegID(_ context.Context, id, legID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[id]; ok && rec.TelephonyLegID == nil {
		rec.TelephonyLegID = &legID
	}
	return nil
}

func (f *fakeCallRepo) UpdateTranscriptIfNotMeaningful(_ context.Context, id, transcript string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meaningful[id] {
		return false, nil
	}
	f.transcriptWritten[id] = transcript
	return true, nil
}

func (f *fakeCallRepo) SetLeadRatingIfEmpty(_ context.Context, id string, rating model.LeadRating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ratingWritten[id]; !ok {
		f.ratingWritten[id] = rating
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
	if rec, ok := f.records[id]; ok {
		rec.Status = model.CallStatusFailed
	}
	return nil
}

func (f *fakeCallRepo) MarkStalePendingNoAnswer(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// fakeAgentRepo serves agents from a map.
type fakeAgentRepo struct {
	agents map[string]*model.Agent
}

func (f *fakeAgentRepo) FindByID(_ context.Context, id string) (*model.Agent, error) {
	return f.agents[id], nil
}

func (f *fakeAgentRepo) FindByEngineAgentID(_ context.Context, engineAgentID string) (*model.Agent, error) {
	for _, a := range f.agents {
		if a.EngineAgentID == engineAgentID {
			return a, nil
		}
	}
	return nil, nil
}

type fakeCampaignRepo struct {
	campaigns map[string]*model.Campaign
}

func (f *fakeCampaignRepo) FindByID(_ context.Context, id string) (*model.Campaign, error) {
	return f.campaigns[id], nil
}

func (f *fakeCampaignRepo) FindMostRecentStartedByAgentID(context.Context, string) (*model.Campaign, error) {
	return nil, nil
}

type fakeConnectionRepo struct {
	connections map[string]*model.PhoneConnection
}

func (f *fakeConnectionRepo) FindByID(_ context.Context, id string) (*model.PhoneConnection, error) {
	return f.connections[id], nil
}

func (f *fakeConnectionRepo) FindByAgentIDAndNumber(context.Context, string, string) (*model.PhoneConnection, error) {
	return nil, nil
}

func (f *fakeConnectionRepo) FindFirstByAgentID(context.Context, string) (*model.PhoneConnection, error) {
	return nil, nil
}

// fakeControl records redirect and hangup requests.
type fakeControl struct {
	mu          sync.Mutex
	redirects   []string
	ended       []string
	redirectErr error
}

func (f *fakeControl) RedirectCall(_ context.Context, legID, destination, callerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redirectErr != nil {
		return f.redirectErr
	}
	f.redirects = append(f.redirects, legID+"->"+destination)
	return nil
}

func (f *fakeControl) EndCall(_ context.Context, legID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, legID)
	return nil
}

// fakeFlowBridge replays canned instructions.
type fakeFlowBridge struct {
	mu           sync.Mutex
	instruction  string
	contextual   string
	ended        bool
	userMessages []string
}

func (f *fakeFlowBridge) ProcessUserResponse(_ context.Context, _ string, utterance string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMessages = append(f.userMessages, utterance)
	return f.instruction, nil
}

func (f *fakeFlowBridge) GenerateContextualUpdate(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contextual, nil
}

func (f *fakeFlowBridge) HasFlowEnded(context.Context, string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

// fakeDialer hands out a prepared socket.
type fakeDialer struct {
	socket Socket
	err    error
}

func (f *fakeDialer) Dial(context.Context, string) (Socket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.socket, nil
}
