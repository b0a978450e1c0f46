package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/dto"
)

func TestGradeEventServiceDeliversToStudentAndWildcard(t *testing.T) {
	svc := NewGradeEventService(nil, nil, "", testLogger())

	studentFeed, closeStudent := svc.Subscribe("student-1")
	defer closeStudent()
	otherFeed, closeOther := svc.Subscribe("student-2")
	defer closeOther()
	allFeed, closeAll := svc.Subscribe("")
	defer closeAll()

	event := dto.GradeEvent{SubmissionID: 3, QuestionID: "q-1", StudentID: "student-1", Score: 4, Mode: "rubric"}
	svc.Publish(context.Background(), event)

	select {
	case got := <-studentFeed:
		require.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("student subscriber did not receive event")
	}

	select {
	case got := <-allFeed:
		require.Equal(t, uint(3), got.SubmissionID)
	case <-time.After(time.Second):
		t.Fatal("wildcard subscriber did not receive event")
	}

	select {
	case <-otherFeed:
		t.Fatal("unrelated student received event")
	default:
	}
}

func TestGradeEventServiceCleanupClosesChannel(t *testing.T) {
	svc := NewGradeEventService(nil, nil, "", testLogger())

	feed, cleanup := svc.Subscribe("student-1")
	cleanup()
	cleanup()

	_, open := <-feed
	require.False(t, open)

	svc.Publish(context.Background(), dto.GradeEvent{StudentID: "student-1"})
}

func TestGradeEventServiceIgnoresOwnRemoteEcho(t *testing.T) {
	svc := NewGradeEventService(nil, nil, "grader", testLogger()).(*gradeEventService)
	feed, cleanup := svc.Subscribe("student-1")
	defer cleanup()

	own, err := json.Marshal(gradeEventEnvelope{Source: svc.nodeID, Event: dto.GradeEvent{StudentID: "student-1", Score: 1}})
	require.NoError(t, err)
	svc.handleEvent(own, "nats")

	select {
	case <-feed:
		t.Fatal("own event delivered twice")
	default:
	}

	remote, err := json.Marshal(gradeEventEnvelope{Source: "other-node", Event: dto.GradeEvent{StudentID: "student-1", Score: 2}})
	require.NoError(t, err)
	svc.handleEvent(remote, "nats")

	select {
	case got := <-feed:
		require.Equal(t, 2.0, got.Score)
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}

	svc.handleEvent([]byte("not json"), "redis")
}

func TestGradeEventServiceSubjectNames(t *testing.T) {
	svc := NewGradeEventService(nil, nil, "grader", testLogger()).(*gradeEventService)
	require.Equal(t, "grader:grades", svc.redisChannel)
	require.Equal(t, "grader.grades", svc.natsSubject)
}

func TestGradeEventServiceDeliversEventOnceAcrossTransports(t *testing.T) {
	svc := NewGradeEventService(nil, nil, "grader", testLogger()).(*gradeEventService)
	feed, cleanup := svc.Subscribe("student-1")
	defer cleanup()

	payload, err := json.Marshal(gradeEventEnvelope{
		ID:     "event-1",
		Source: "other-node",
		Event:  dto.GradeEvent{StudentID: "student-1", Score: 5},
	})
	require.NoError(t, err)

	svc.handleEvent(payload, "redis")
	svc.handleEvent(payload, "nats")

	select {
	case got := <-feed:
		require.Equal(t, 5.0, got.Score)
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}

	select {
	case <-feed:
		t.Fatal("event delivered once per transport")
	default:
	}

	next, err := json.Marshal(gradeEventEnvelope{
		ID:     "event-2",
		Source: "other-node",
		Event:  dto.GradeEvent{StudentID: "student-1", Score: 6},
	})
	require.NoError(t, err)
	svc.handleEvent(next, "nats")

	select {
	case got := <-feed:
		require.Equal(t, 6.0, got.Score)
	case <-time.After(time.Second):
		t.Fatal("distinct event not delivered")
	}
}
