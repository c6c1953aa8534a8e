package dataset

import (
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

// Row is one labeled question. Image points at the slide capture the
// question was read from, relative to the dataset file when not absolute.
type Row struct {
	ID            string   `json:"id" parquet:"id"`
	QuizID        string   `json:"quiz_id" parquet:"quiz_id"`
	QuizTitle     string   `json:"quiz_title" parquet:"quiz_title"`
	Image         string   `json:"image" parquet:"image"`
	Question      string   `json:"question" parquet:"question"`
	Options       []string `json:"options" parquet:"options,list"`
	CorrectAnswer string   `json:"correct_answer" parquet:"correct_answer"`
}

// Expected returns the row as a question with canonical option keys.
func (r *Row) Expected() models.Question {
	q := models.Question{
		Question:      r.Question,
		Options:       make([]models.Option, len(r.Options)),
		CorrectAnswer: r.CorrectAnswer,
	}
	for i, text := range r.Options {
		q.Options[i] = models.Option{Key: strconv.Itoa(i + 1), Text: text}
	}
	return q
}

// ImagePath resolves Image against the directory holding the dataset.
func (r *Row) ImagePath(datasetPath string) string {
	if r.Image == "" || filepath.IsAbs(r.Image) {
		return r.Image
	}
	return filepath.Join(filepath.Dir(datasetPath), r.Image)
}

// RowsFromRecord flattens a stored quiz into one row per question.
func RowsFromRecord(record *models.QuizRecord) []Row {
	rows := make([]Row, 0, len(record.Questions))
	for _, q := range record.Questions {
		rows = append(rows, Row{
			ID:            record.ID + "-" + strconv.Itoa(q.ID),
			QuizID:        record.ID,
			QuizTitle:     record.QuizTitle,
			Question:      q.Question,
			Options:       q.OptionTexts(),
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return rows
}
