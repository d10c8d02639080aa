package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db             *gorm.DB
	session        repositories.SessionRepository
	answerLedger   repositories.AnswerLedgerRepository
	catalog        repositories.CatalogRepository
	scoreTable     repositories.ScoreTableRepository
	userStatistics repositories.UserStatisticsRepository
}

// NewRepository wires every gorm-backed store onto one connection.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:             db,
		session:        NewSessionPostgreSQL(db),
		answerLedger:   NewAnswerLedgerPostgreSQL(db),
		catalog:        NewCatalogPostgreSQL(db),
		scoreTable:     NewScoreTablePostgreSQL(db),
		userStatistics: NewUserStatisticsPostgreSQL(db),
	}
}

func (r *repository) Session() repositories.SessionRepository               { return r.session }
func (r *repository) AnswerLedger() repositories.AnswerLedgerRepository     { return r.answerLedger }
func (r *repository) Catalog() repositories.CatalogRepository               { return r.catalog }
func (r *repository) ScoreTable() repositories.ScoreTableRepository         { return r.scoreTable }
func (r *repository) UserStatistics() repositories.UserStatisticsRepository { return r.userStatistics }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
