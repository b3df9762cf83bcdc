package bolt

import (
	"github.com/brk3/habitboard/pkg/habit"
	"go.etcd.io/bbolt"
)

func (s *Store) putHabitForTest(h habit.Habit) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, h.UserID, habitsBucket)
		if err != nil {
			return err
		}
		return putJSON(b, []byte(h.ID), h)
	})
}
