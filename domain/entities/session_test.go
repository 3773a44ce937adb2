package entities

import (
	"testing"
)

func TestClampScore(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{4.9, 4.9},
		{5.1, 5},
		{-7, -5},
	}
	for _, c := range cases {
		if got := ClampScore(c.in); got != c.want {
			t.Errorf("ClampScore(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestScoreToPercent(t *testing.T) {
	cases := []struct {
		score, want float64
	}{
		{-5, 0},
		{0, 50},
		{5, 100},
		{2.5, 75},
		{9, 100}, // clamped before conversion
	}
	for _, c := range cases {
		if got := ScoreToPercent(c.score); got != c.want {
			t.Errorf("ScoreToPercent(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestSessionOptimisticTurnLifecycle(t *testing.T) {
	session := &Session{ID: "sess-1", MaxTurns: 10}

	session.AddOptimisticTurn("local-1", "hello there")
	if got := session.UserTurnCount(); got != 1 {
		t.Fatalf("UserTurnCount() = %d, want 1", got)
	}
	if session.Turns[0].Status != TurnStatusOptimistic {
		t.Errorf("turn status = %q, want optimistic", session.Turns[0].Status)
	}

	confirmed := Turn{
		ID:          "turn-remote-1",
		SessionID:   "sess-1",
		Number:      1,
		UserMessage: "hello there",
		AIResponse:  "hi!",
	}
	if !session.ConfirmTurn("local-1", confirmed) {
		t.Fatal("ConfirmTurn() = false, want true")
	}
	if session.Turns[0].ID != "turn-remote-1" {
		t.Errorf("turn id after confirm = %q, want turn-remote-1", session.Turns[0].ID)
	}
	if session.Turns[0].Status != TurnStatusConfirmed {
		t.Errorf("turn status after confirm = %q, want confirmed", session.Turns[0].Status)
	}

	// Confirming a second time must not match anything.
	if session.ConfirmTurn("local-1", confirmed) {
		t.Error("ConfirmTurn() matched an already confirmed turn")
	}
}

func TestSessionRemoveTurn(t *testing.T) {
	session := &Session{ID: "sess-1"}
	session.AddOptimisticTurn("local-1", "first")
	session.AddOptimisticTurn("local-2", "second")

	if !session.RemoveTurn("local-1") {
		t.Fatal("RemoveTurn() = false, want true")
	}
	if got := session.UserTurnCount(); got != 1 {
		t.Errorf("UserTurnCount() after removal = %d, want 1", got)
	}
	if session.Turns[0].ID != "local-2" {
		t.Errorf("remaining turn = %q, want local-2", session.Turns[0].ID)
	}
	if session.RemoveTurn("local-1") {
		t.Error("RemoveTurn() removed a turn twice")
	}
}

func TestSessionSystemMarkersDoNotCountAsTurns(t *testing.T) {
	session := &Session{ID: "sess-1", MaxTurns: 2}
	session.AddOptimisticTurn("local-1", "one")
	session.AppendSystemMarker("session ended")

	if got := session.UserTurnCount(); got != 1 {
		t.Errorf("UserTurnCount() = %d, want 1", got)
	}
	if session.AtTurnLimit() {
		t.Error("AtTurnLimit() = true with one user turn of two")
	}
	if !session.HasSystemMarker("session ended") {
		t.Error("HasSystemMarker() = false, want true")
	}
	if session.HasSystemMarker("something else") {
		t.Error("HasSystemMarker() matched a marker that was never appended")
	}
}

func TestSessionAtTurnLimit(t *testing.T) {
	session := &Session{ID: "sess-1", MaxTurns: 2}
	session.AddOptimisticTurn("local-1", "one")
	session.AddOptimisticTurn("local-2", "two")
	if !session.AtTurnLimit() {
		t.Error("AtTurnLimit() = false at the limit")
	}

	unlimited := &Session{ID: "sess-2"}
	unlimited.AddOptimisticTurn("local-1", "one")
	if unlimited.AtTurnLimit() {
		t.Error("AtTurnLimit() = true with MaxTurns 0")
	}
}

func TestSessionApplyRemote(t *testing.T) {
	session := &Session{ID: "sess-1", CurrentTurn: 3, MaxTurns: 10, ConnectionScore: 1}

	session.ApplyRemote(&Session{
		ConnectionScore: 7, // out of range, must be clamped
		CurrentTurn:     2, // behind local, must not regress
		MaxTurns:        10,
	})
	if session.ConnectionScore != MaxConnectionScore {
		t.Errorf("ConnectionScore = %v, want %v", session.ConnectionScore, MaxConnectionScore)
	}
	if session.CurrentTurn != 3 {
		t.Errorf("CurrentTurn = %d, want 3", session.CurrentTurn)
	}

	session.ApplyRemote(&Session{
		ConnectionScore:  2,
		CurrentTurn:      4,
		Completed:        true,
		CompletionReason: CompletionObjective,
	})
	if !session.Completed {
		t.Error("Completed = false after remote completion")
	}
	if session.CompletionReason != CompletionObjective {
		t.Errorf("CompletionReason = %q, want %q", session.CompletionReason, CompletionObjective)
	}
	if session.CurrentTurn != 4 {
		t.Errorf("CurrentTurn = %d, want 4", session.CurrentTurn)
	}
}

func TestSessionValidate(t *testing.T) {
	valid := &Session{
		ScenarioID:        "sc-1",
		RoleID:            "sc-1-role-a",
		RelationshipLevel: RelationshipNormal,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid session = %v, want nil", err)
	}

	cases := []struct {
		name    string
		session Session
	}{
		{"missing scenario", Session{RoleID: "r", RelationshipLevel: RelationshipLow}},
		{"missing role", Session{ScenarioID: "s", RelationshipLevel: RelationshipLow}},
		{"bad relationship level", Session{ScenarioID: "s", RoleID: "r", RelationshipLevel: "bff"}},
		{"score out of range", Session{ScenarioID: "s", RoleID: "r", RelationshipLevel: RelationshipLow, ConnectionScore: 6}},
		{"bad rating", Session{ScenarioID: "s", RoleID: "r", RelationshipLevel: RelationshipLow, Rating: 9}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.session.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
