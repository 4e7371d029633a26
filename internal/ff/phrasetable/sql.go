package phrasetable

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/ff"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/mempool"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/phrase"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/scores"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/postgres"
)

const defaultTable = "phrase_table"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQL loads a phrase table from a Postgres table with columns
// (source, target, scores) at Load and serves lookups from memory.
type SQL struct {
	ff.Base
	ff.TableIndexed

	table   string
	entries translations
	logger  *slog.Logger
}

func NewSQL(startIndex int, line string) (ff.FeatureFunction, error) {
	b, err := ff.NewBase(startIndex, line, defaultNumScores)
	if err != nil {
		return nil, err
	}
	table := b.Args.String("table", defaultTable)
	if !tableName.MatchString(table) {
		return nil, apperrors.Newf(apperrors.ErrMalformedValue, 0, "%s: invalid table name %q", b.Name(), table)
	}
	return &SQL{
		Base:   b,
		table:  table,
		logger: slog.Default().With("component", "phrasetable", "feature", b.Name()),
	}, nil
}

func (s *SQL) Load(ctx context.Context, res *ff.Resources) error {
	if res == nil || res.Postgres == nil {
		return fmt.Errorf("%s: postgres is not configured", s.Name())
	}
	exists, err := res.Postgres.TableExists(ctx, s.table)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	if !exists {
		return fmt.Errorf("%s: table %s does not exist", s.Name(), s.table)
	}
	rows, err := res.Postgres.DB.QueryContext(ctx,
		`SELECT source, target, scores FROM `+s.table+` ORDER BY source, target`)
	if err != nil {
		return fmt.Errorf("%s: querying %s: %w", s.Name(), s.table, err)
	}
	defer rows.Close()

	entries := make(translations)
	n := 0
	for rows.Next() {
		var src, tgt, raw string
		if err := rows.Scan(&src, &tgt, &raw); err != nil {
			return fmt.Errorf("%s: scanning row: %w", s.Name(), err)
		}
		probs, err := ParseProbs(raw, s.NumScores())
		if err != nil {
			return fmt.Errorf("%s: %q ||| %q: %w", s.Name(), src, tgt, err)
		}
		entries.add(Entry{Source: src, Target: tgt, Probs: probs})
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s: reading rows: %w", s.Name(), err)
	}
	s.entries = entries
	s.logger.Info("phrase table loaded", "table", s.table, "sources", len(entries), "entries", n)
	return nil
}

func (s *SQL) Close() error {
	s.entries = nil
	return nil
}

func (s *SQL) EvaluateInIsolation(*scores.Weights, phrase.Phrase, *phrase.TargetPhrase, *scores.Scores, *scores.Scores) {
}

func (s *SQL) Lookup(_ context.Context, pool *mempool.Pool, w *scores.Weights, numScores int, source phrase.Phrase) ([]*phrase.TargetPhrase, error) {
	entries := s.entries[source.String()]
	if len(entries) == 0 {
		return nil, nil
	}
	return materialize(pool, w, numScores, s.StartIndex(), source, entries), nil
}

// ImportSQL creates table if needed and upserts every entry of a Moses
// text phrase table in one transaction.
func ImportSQL(ctx context.Context, client *postgres.Client, table string, numScores int, r io.Reader) (int, error) {
	if !tableName.MatchString(table) {
		return 0, apperrors.Newf(apperrors.ErrMalformedValue, 0, "invalid table name %q", table)
	}
	n := 0
	err := client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			scores TEXT NOT NULL,
			PRIMARY KEY (source, target)
		)`); err != nil {
			return fmt.Errorf("creating %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (source, target, scores)
			VALUES ($1, $2, $3)
			ON CONFLICT (source, target) DO UPDATE SET scores = EXCLUDED.scores`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		return ReadEntries(r, numScores, func(e Entry) error {
			if _, err := stmt.ExecContext(ctx, e.Source, e.Target, FormatProbs(e.Probs)); err != nil {
				return fmt.Errorf("inserting %q: %w", e.Source, err)
			}
			n++
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
