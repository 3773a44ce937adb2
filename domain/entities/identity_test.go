package entities

import "testing"

func TestIdentityValidate(t *testing.T) {
	cases := []struct {
		name     string
		identity Identity
		wantErr  bool
	}{
		{
			name:     "valid guest",
			identity: Identity{ID: "u1", Kind: AccountKindGuest},
		},
		{
			name:     "valid local guest",
			identity: Identity{ID: "u1", Kind: AccountKindGuest, Local: true},
		},
		{
			name:     "valid registered",
			identity: Identity{ID: "u1", Kind: AccountKindRegistered, Email: "a@b.c"},
		},
		{
			name:     "missing id",
			identity: Identity{Kind: AccountKindGuest},
			wantErr:  true,
		},
		{
			name:     "guest with email",
			identity: Identity{ID: "u1", Kind: AccountKindGuest, Email: "a@b.c"},
			wantErr:  true,
		},
		{
			name:     "registered without email",
			identity: Identity{ID: "u1", Kind: AccountKindRegistered},
			wantErr:  true,
		},
		{
			name:     "registered local",
			identity: Identity{ID: "u1", Kind: AccountKindRegistered, Email: "a@b.c", Local: true},
			wantErr:  true,
		},
		{
			name:     "unknown kind",
			identity: Identity{ID: "u1", Kind: "service"},
			wantErr:  true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.identity.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestLocalizedTextFallback(t *testing.T) {
	text := LocalizedText{"en": "Hello", "id": "Halo"}

	if got := text.Get("id"); got != "Halo" {
		t.Errorf("Get(id) = %q, want Halo", got)
	}
	if got := text.Get("fr"); got != "Hello" {
		t.Errorf("Get(fr) = %q, want the en fallback", got)
	}

	onlyOther := LocalizedText{"id": "Halo"}
	if got := onlyOther.Get("fr"); got != "Halo" {
		t.Errorf("Get(fr) without en = %q, want any available translation", got)
	}

	if got := (LocalizedText{}).Get("en"); got != "" {
		t.Errorf("Get on empty text = %q, want empty", got)
	}
}

func TestScenarioLocalizedTitle(t *testing.T) {
	scenario := Scenario{
		Title:  "Coffee chat",
		Titles: LocalizedText{"id": "Ngopi bareng"},
	}
	if got := scenario.LocalizedTitle("id"); got != "Ngopi bareng" {
		t.Errorf("LocalizedTitle(id) = %q", got)
	}
	if got := scenario.LocalizedTitle("fr"); got != "Coffee chat" {
		t.Errorf("LocalizedTitle(fr) = %q, want the base title", got)
	}
}
