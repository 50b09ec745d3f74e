package db

import "github.com/marcus/proj/internal/models"

// Export dumps every table for the export command
func (db *DB) Export() (*models.ExportData, error) {
	data := &models.ExportData{Project: db.ProjectInfo(), ExportedAt: db.clock()}
	err := db.withReadTx(func(q querier) error {
		var err error
		if data.Sessions, err = queryAll(q, scanSession, `SELECT `+sessionCols+` FROM sessions ORDER BY id`); err != nil {
			return err
		}
		if data.Decisions, err = queryAll(q, scanDecision, `SELECT `+decisionCols+` FROM decisions ORDER BY id`); err != nil {
			return err
		}
		if data.Tasks, err = queryAll(q, scanTask, `SELECT `+taskCols+` FROM tasks ORDER BY id`); err != nil {
			return err
		}
		if data.Blockers, err = queryAll(q, scanBlocker, `SELECT `+blockerCols+` FROM blockers ORDER BY id`); err != nil {
			return err
		}
		if data.Notes, err = queryAll(q, scanNote, `SELECT `+noteCols+` FROM context_notes ORDER BY id`); err != nil {
			return err
		}
		if data.Questions, err = queryAll(q, scanQuestion, `SELECT `+questionCols+` FROM questions ORDER BY id`); err != nil {
			return err
		}
		data.Commits, err = queryAll(q, scanCommit, `SELECT `+commitCols+` FROM git_commits ORDER BY committed_at, id`)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
