package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge/pkg/bus"
	"github.com/carebridge/carebridge/pkg/models"
)

func TestSocialWorkerAssignmentIsStablePerCase(t *testing.T) {
	agent := NewSocialWorkerAgent()

	first, err := agent.Handle(context.Background(), bus.SocialWorkerRequest{CaseID: "C1", PatientName: "John Doe"})
	require.NoError(t, err)
	second, err := agent.Handle(context.Background(), bus.SocialWorkerRequest{CaseID: "C1", PatientName: "John Doe"})
	require.NoError(t, err)

	a := first.(models.CaseManagerAssignment)
	b := second.(models.CaseManagerAssignment)
	assert.Equal(t, a.Name, b.Name)
	assert.NotEmpty(t, a.Phone)
	assert.NotEmpty(t, a.Department)
}

func TestSocialWorkerFirstContactNextBusinessDay(t *testing.T) {
	agent := NewSocialWorkerAgent()

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek rolls to next morning",
			now:  time.Date(2026, 3, 3, 16, 30, 0, 0, time.UTC), // Tuesday
			want: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),  // Wednesday
		},
		{
			name: "friday skips the weekend",
			now:  time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC),  // Friday
			want: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), // Monday
		},
		{
			name: "saturday lands on monday",
			now:  time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC), // Saturday
			want: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC), // Monday
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent.Now = func() time.Time { return tt.now }
			resp, err := agent.Handle(context.Background(), bus.SocialWorkerRequest{CaseID: "C2"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.(models.CaseManagerAssignment).FirstContactDate)
		})
	}
}
