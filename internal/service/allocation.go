package service

import "github.com/Shivanand-hulikatti/event-participation/internal/model"

// allocate splits pending requests by seat availability, keeping the
// caller's order: the first available requests are confirmed and the rest
// rejected. Both results are non-nil.
func allocate(pending []model.ParticipationRequest, available int) (confirmed, rejected []model.ParticipationRequest) {
	n := max(0, min(available, len(pending)))
	confirmed = append(make([]model.ParticipationRequest, 0, n), pending[:n]...)
	rejected = append(make([]model.ParticipationRequest, 0, len(pending)-n), pending[n:]...)
	return confirmed, rejected
}

// uniqueIDs drops repeated ids, keeping the first occurrence of each.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func requestIDs(reqs []model.ParticipationRequest) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}
