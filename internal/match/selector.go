package match

import "vocab-battle/internal/domain"

// Next picks the student who answers the next question. ok is false once every
// student has reached the quota; calling Next again after that keeps returning
// false without error. The previous pick is never repeated while another eligible
// student exists.
func (s *Session) Next() (student domain.Student, ok bool, err error) {
	if len(s.roster) == 0 {
		return domain.Student{}, false, domain.ErrEmptyRoster
	}

	eligible := make([]int, 0, len(s.roster))
	for i, st := range s.roster {
		if s.counts[st.ID] < s.config.QuestionsPerStudent {
			eligible = append(eligible, i)
		}
	}

	var pick int
	switch len(eligible) {
	case 0:
		return domain.Student{}, false, nil
	case 1:
		pick = eligible[0]
	default:
		candidates := make([]int, 0, len(eligible))
		for _, i := range eligible {
			if s.roster[i].ID != s.lastSelected {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			candidates = eligible
		}
		pick = candidates[s.rnd.Intn(len(candidates))]
	}

	s.lastSelected = s.roster[pick].ID
	return s.roster[pick], true, nil
}
