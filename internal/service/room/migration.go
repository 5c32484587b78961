package room

import (
	"cmp"

	"github.com/sharetube/watchparty/internal/repository/room"
	"golang.org/x/exp/slices"
)

// electHost picks the earliest-joined participant. participants must not be empty.
func electHost(participants []room.Participant) room.Participant {
	return slices.MinFunc(participants, func(a, b room.Participant) int {
		return cmp.Compare(a.JoinSeq, b.JoinSeq)
	})
}

// splitParticipants separates userId from the rest of the roster.
func splitParticipants(participants []room.Participant, userId string) (*room.Participant, []room.Participant) {
	idx := slices.IndexFunc(participants, func(p room.Participant) bool {
		return p.UserId == userId
	})
	if idx == -1 {
		return nil, participants
	}

	leaver := participants[idx]
	rest := slices.Delete(slices.Clone(participants), idx, idx+1)

	return &leaver, rest
}
