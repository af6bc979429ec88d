package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/pkg/fault"
)

func TestRegistryDispatchesToHandler(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("shelter", MsgShelterMatch, func(_ context.Context, payload any) (any, error) {
		req := payload.(ShelterMatchRequest)
		return ShelterMatchResponse{AvailabilityConfirmed: true, Transcript: "ok for " + req.CaseID}, nil
	}))

	resp, err := reg.Call(context.Background(), "coordinator", "shelter", MsgShelterMatch,
		ShelterMatchRequest{CaseID: "C1"}, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.(ShelterMatchResponse).AvailabilityConfirmed)
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	reg := NewRegistry()
	handler := func(_ context.Context, _ any) (any, error) { return nil, nil }

	require.NoError(t, reg.Register("shelter", MsgShelterMatch, handler))
	assert.Error(t, reg.Register("shelter", MsgShelterMatch, handler))
}

func TestRegistryUnknownAgent(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Call(context.Background(), "coordinator", "ghost", MsgShelterMatch,
		ShelterMatchRequest{}, time.Second)
	var remote *fault.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "not_found", remote.Kind)
}

func TestRegistryMessageTypeMismatch(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("shelter", MsgShelterMatch, func(_ context.Context, _ any) (any, error) {
		return nil, nil
	}))

	_, err := reg.Call(context.Background(), "coordinator", "shelter", MsgTransportSchedule,
		TransportRequest{}, time.Second)
	var remote *fault.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "validation", remote.Kind)
}

func TestRegistryHandlerErrorBecomesRemoteError(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("pharmacy", MsgPharmacyPrepare, func(_ context.Context, _ any) (any, error) {
		return nil, fault.NewValidationError("medications", "must not be empty")
	}))

	_, err := reg.Call(context.Background(), "coordinator", "pharmacy", MsgPharmacyPrepare,
		PharmacyRequest{}, time.Second)
	var remote *fault.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "validation", remote.Kind)
	assert.Contains(t, remote.Message, "medications")
}

func TestRegistryTimeout(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("slow", MsgResourceRequest, func(_ context.Context, _ any) (any, error) {
		time.Sleep(500 * time.Millisecond)
		return ResourceResponse{}, nil
	}))

	_, err := reg.Call(context.Background(), "coordinator", "slow", MsgResourceRequest,
		ResourceRequest{}, 20*time.Millisecond)
	var timeout *fault.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Contains(t, timeout.Error(), "agent:slow")
}

func TestRegistryCancellation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("slow", MsgResourceRequest, func(ctx context.Context, _ any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := reg.Call(ctx, "coordinator", "slow", MsgResourceRequest, ResourceRequest{}, time.Second)
	assert.True(t, errors.Is(err, fault.ErrCancelled))
}

func TestRegistryNotifyFansOutToAllSubscribers(t *testing.T) {
	reg := NewRegistry()

	var mu sync.Mutex
	var got []string
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		reg.Subscribe(func(u WorkflowUpdate) {
			mu.Lock()
			got = append(got, fmt.Sprintf("%d:%s", i, u.Step))
			mu.Unlock()
			wg.Done()
		})
	}

	reg.Notify(WorkflowUpdate{CaseID: "C1", Step: "intake", Status: "completed"})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"0:intake", "1:intake"}, got)
}

func TestConversationLogRecordsExchange(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("shelter", MsgShelterMatch, func(_ context.Context, _ any) (any, error) {
		return ShelterMatchResponse{AvailabilityConfirmed: true}, nil
	}))

	_, err := reg.Call(context.Background(), "coordinator", "shelter", MsgShelterMatch,
		ShelterMatchRequest{CaseID: "C1"}, time.Second)
	require.NoError(t, err)

	convs := reg.Conversations().Snapshot()
	require.Len(t, convs, 1)
	assert.Equal(t, "coordinator", convs[0].FromAgent)
	assert.Equal(t, "shelter", convs[0].ToAgent)
	assert.Equal(t, "completed", convs[0].Status)
	assert.NotNil(t, convs[0].CompletedAt)
	assert.Contains(t, convs[0].Content, "C1")
}

func TestConversationLogBounded(t *testing.T) {
	log := NewConversationLog(3)
	for i := 0; i < 5; i++ {
		log.Begin("coordinator", "shelter", MsgShelterMatch, ShelterMatchRequest{CaseID: fmt.Sprintf("C%d", i)})
	}

	convs := log.Snapshot()
	require.Len(t, convs, 3)
	assert.Contains(t, convs[0].Content, "C2")
	assert.Contains(t, convs[2].Content, "C4")
}
