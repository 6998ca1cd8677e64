package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/biorag/internal/domain"
)

// PublicationRepository stores publication records and the summaries written
// back by ingestion.
type PublicationRepository struct {
	db dbtx
}

func NewPublicationRepository(pool *pgxpool.Pool) *PublicationRepository {
	return &PublicationRepository{db: pool}
}

func NewPublicationRepositoryWithTx(tx pgx.Tx) *PublicationRepository {
	return &PublicationRepository{db: tx}
}

// Upsert inserts a publication or refreshes its source fields. Summaries are
// left untouched.
func (r *PublicationRepository) Upsert(ctx context.Context, p *domain.Publication) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO publications (id, title, abstract, full_text, year, organism, environment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     abstract = EXCLUDED.abstract,
		     full_text = EXCLUDED.full_text,
		     year = EXCLUDED.year,
		     organism = EXCLUDED.organism,
		     environment = EXCLUDED.environment,
		     updated_at = EXCLUDED.updated_at`,
		p.ID, p.Title, p.Abstract, p.Text, p.Year, p.Organism, p.Environment, now,
	)
	return err
}

func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*domain.Publication, error) {
	var p domain.Publication
	err := r.db.QueryRow(ctx,
		`SELECT id, title, abstract, full_text, year, organism, environment, created_at, updated_at
		 FROM publications WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Title, &p.Abstract, &p.Text, &p.Year, &p.Organism, &p.Environment, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPublicationNotFound
		}
		return nil, err
	}
	return &p, nil
}

// WriteSummaries stores every summary field, the insights and the tag links
// in one transaction.
func (r *PublicationRepository) WriteSummaries(ctx context.Context, id string, s *domain.PublicationSummaries) error {
	cols, err := encodeSummaryColumns(s)
	if err != nil {
		return err
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE publications SET
			     abstract_summary = $2,
			     scientist_summary = $3,
			     investor_summary = $4,
			     mission_architect_summary = $5,
			     knowledge_graph = $6,
			     scientific_progress = $7,
			     knowledge_gaps = $8,
			     consensus = $9,
			     faqs = $10,
			     actionable_insights = $11,
			     summarized_at = $12,
			     updated_at = $12
			 WHERE id = $1`,
			id,
			s.AbstractSummary,
			s.ScientistSummary,
			s.InvestorSummary,
			s.MissionArchitectSummary,
			cols.graph,
			cols.progress,
			cols.gaps,
			cols.consensus,
			cols.faqs,
			cols.insights,
			time.Now().UTC(),
		)
		if err != nil {
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			return domain.ErrPublicationNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM publication_tags WHERE publication_id = $1`, id); err != nil {
			return err
		}
		for _, name := range s.Tags {
			var tagID int64
			err := tx.QueryRow(ctx,
				`INSERT INTO tags (name) VALUES ($1)
				 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				 RETURNING id`,
				name,
			).Scan(&tagID)
			if err != nil {
				return fmt.Errorf("upsert tag %q: %w", name, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO publication_tags (publication_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				id, tagID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSummaries returns the written-back summaries. ErrPublicationNotFound is
// returned for an unknown id; a publication that was never summarized
// returns NOT_FOUND as well.
func (r *PublicationRepository) GetSummaries(ctx context.Context, id string) (*domain.PublicationSummaries, error) {
	var (
		s                                      domain.PublicationSummaries
		abstract, scientist, investor, mission pgtype.Text
		graph, progress, gaps, consensus       []byte
		faqs, insights                         []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT abstract_summary, scientist_summary, investor_summary, mission_architect_summary,
		        knowledge_graph, scientific_progress, knowledge_gaps, consensus, faqs, actionable_insights
		 FROM publications WHERE id = $1`,
		id,
	).Scan(&abstract, &scientist, &investor, &mission, &graph, &progress, &gaps, &consensus, &faqs, &insights)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPublicationNotFound
		}
		return nil, err
	}
	if !abstract.Valid {
		return nil, domain.NewDomainError(domain.ErrCodeNotFound, "publication has not been summarized")
	}

	s.AbstractSummary = abstract.String
	s.ScientistSummary = scientist.String
	s.InvestorSummary = investor.String
	s.MissionArchitectSummary = mission.String
	for _, f := range []struct {
		raw  []byte
		dest any
	}{
		{graph, &s.KnowledgeGraph},
		{progress, &s.ScientificProgress},
		{gaps, &s.KnowledgeGaps},
		{consensus, &s.Consensus},
		{faqs, &s.FAQs},
		{insights, &s.ActionableInsights},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("decode summaries: %w", err)
		}
	}

	rows, err := r.db.Query(ctx,
		`SELECT t.name FROM publication_tags pt JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.publication_id = $1 ORDER BY t.name`,
		id,
	)
	if err != nil {
		return nil, err
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	s.Tags = tags
	return &s, nil
}

// ListActionableInsights returns every written-back insight, ordered by
// publication id and then by position in the publication's list.
func (r *PublicationRepository) ListActionableInsights(ctx context.Context) ([]domain.ActionableInsight, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, i.insight
		 FROM publications p
		 CROSS JOIN LATERAL jsonb_array_elements_text(p.actionable_insights) WITH ORDINALITY AS i(insight, ord)
		 WHERE p.actionable_insights IS NOT NULL
		 ORDER BY p.id, i.ord`,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ActionableInsight, error) {
		var in domain.ActionableInsight
		err := row.Scan(&in.PublicationID, &in.Insight)
		return in, err
	})
}

type summaryColumns struct {
	graph, progress, gaps, consensus, faqs, insights []byte
}

func encodeSummaryColumns(s *domain.PublicationSummaries) (*summaryColumns, error) {
	var cols summaryColumns
	var err error
	marshal := func(v any) []byte {
		if err != nil {
			return nil
		}
		var b []byte
		b, err = json.Marshal(v)
		return b
	}
	// nil optional groups are stored as SQL NULL, not JSON null
	optional := func(isNil bool, v any) []byte {
		if isNil {
			return nil
		}
		return marshal(v)
	}

	cols.graph = marshal(s.KnowledgeGraph)
	cols.progress = optional(s.ScientificProgress == nil, s.ScientificProgress)
	cols.gaps = optional(s.KnowledgeGaps == nil, s.KnowledgeGaps)
	cols.consensus = optional(s.Consensus == nil, s.Consensus)
	cols.faqs = marshal(s.FAQs)
	cols.insights = marshal(s.ActionableInsights)
	if err != nil {
		return nil, fmt.Errorf("encode summaries: %w", err)
	}
	return &cols, nil
}
