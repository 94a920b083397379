// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package access

import (
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgarDorausch/flimey-core/internal/modeling"
)

func TestTicket_Assertions(t *testing.T) {
	ac := NewStaticAccessControl()
	require.NoError(t, ac.AssignRole("user:wanda", "worker"))
	require.NoError(t, ac.AssignRole("user:mira", "modeler"))

	groupID := ulid.MustParse("01HZZZZZZZZZZZZZZZZZZZZZZZ")

	t.Run("worker passes worker check only", func(t *testing.T) {
		ticket := NewTicket("user:wanda", ac, []ulid.ULID{groupID})
		assert.NoError(t, ticket.AssertWorker())

		err := ticket.AssertModeler()
		require.Error(t, err)
		assert.True(t, errors.Is(err, modeling.ErrForbidden))
	})

	t.Run("modeler passes both checks", func(t *testing.T) {
		ticket := NewTicket("user:mira", ac, nil)
		assert.NoError(t, ticket.AssertWorker())
		assert.NoError(t, ticket.AssertModeler())
	})

	t.Run("unknown subject fails both checks", func(t *testing.T) {
		ticket := NewTicket("user:ghost", ac, nil)
		assert.True(t, errors.Is(ticket.AssertWorker(), modeling.ErrForbidden))
		assert.True(t, errors.Is(ticket.AssertModeler(), modeling.ErrForbidden))
	})

	t.Run("system ticket passes everything", func(t *testing.T) {
		ticket := SystemTicket(ac)
		assert.NoError(t, ticket.AssertWorker())
		assert.NoError(t, ticket.AssertModeler())
		assert.Empty(t, ticket.GroupIDs())
	})

	t.Run("group ids round trip", func(t *testing.T) {
		ticket := NewTicket("user:wanda", ac, []ulid.ULID{groupID})
		assert.Equal(t, []ulid.ULID{groupID}, ticket.GroupIDs())
	})
}
