package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/poker-service/internal/domain"
	"github.com/cwrk-planet/poker-service/internal/registry"
)

func TestLobby_Create(t *testing.T) {
	reg := registry.New()
	lobby := NewLobbyService(reg, staticSigner{})

	ticket, err := lobby.Enter(context.Background(), EnterRequest{Name: "  Alice ", Create: true})
	require.NoError(t, err)

	assert.True(t, reg.Exists(ticket.Session.Code))
	assert.Equal(t, "Alice", ticket.Session.Name)
	info, err := reg.Lookup(ticket.Session.Code)
	require.NoError(t, err)
	assert.Equal(t, info.ID, ticket.Session.GameID)
	assert.True(t, ticket.Session.Valid())
	assert.Equal(t, "token:"+ticket.Session.Code+":Alice", ticket.Token)
	assert.False(t, ticket.ExpiresAt.IsZero())
}

func TestLobby_Join(t *testing.T) {
	reg := registry.New(registry.WithCodeGenerator(func(int) string { return "ABCD" }))
	g := createGame(t, reg)
	code := g.Code
	require.NoError(t, reg.AddPlayer(code, domain.NewPlayer("Alice")))
	lobby := NewLobbyService(reg, staticSigner{})
	ctx := context.Background()

	tests := []struct {
		name    string
		req     EnterRequest
		wantErr error
	}{
		{"empty name", EnterRequest{Name: "  ", Code: "ABCD"}, ErrNameRequired},
		{"empty code", EnterRequest{Name: "Bob"}, ErrCodeRequired},
		{"unknown game", EnterRequest{Name: "Bob", Code: "WXYZ"}, domain.ErrGameNotFound},
		{"name taken", EnterRequest{Name: "Alice ", Code: "abcd"}, ErrNameTaken},
		{"case sensitive names", EnterRequest{Name: "alice", Code: "abcd"}, nil},
		{"lower case code", EnterRequest{Name: "Bob", Code: " abcd "}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket, err := lobby.Enter(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ticket)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ABCD", ticket.Session.Code)
			assert.Equal(t, g.ID, ticket.Session.GameID)
		})
	}

	// the lobby only checks; players are added on connect
	names, err := reg.PlayerNames(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names)
}

func TestLobby_Snapshot(t *testing.T) {
	reg := registry.New()
	g := createGame(t, reg)
	lobby := NewLobbyService(reg, staticSigner{})
	ctx := context.Background()
	_, err := reg.Enter(g.Code, g.ID, domain.NewPlayer("Alice"), domain.NewMessage("Alice", domain.BodyEntered, fixedNow))
	require.NoError(t, err)

	snap, err := lobby.Snapshot(ctx, g.Code)
	require.NoError(t, err)
	assert.Equal(t, g.Code, snap.Code)
	assert.Equal(t, []domain.PlayerView{{Name: "Alice"}}, snap.Players)
	assert.Len(t, snap.Messages, 1)

	assert.Equal(t, []string{g.Code}, lobby.Codes(ctx))

	require.NoError(t, reg.DeleteGame(g.Code))
	_, err = lobby.Snapshot(ctx, g.Code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLobby_CreateWithoutFreeCode(t *testing.T) {
	reg := registry.New(registry.WithCodeGenerator(func(int) string { return "ABCD" }))
	createGame(t, reg)
	lobby := NewLobbyService(reg, staticSigner{})

	ticket, err := lobby.Enter(context.Background(), EnterRequest{Name: "Bob", Create: true})
	assert.ErrorIs(t, err, registry.ErrNoFreeCode)
	assert.Nil(t, ticket)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCD", NormalizeCode(" abCd "))
	assert.Equal(t, "", NormalizeCode("   "))
}
