package pgstore

import "context"

// Truncate empties every table.
func Truncate(ctx context.Context, s *Store) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE identities, channels, commands, history, privacy`)
	return err
}
