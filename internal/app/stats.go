package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"quiz-hosting-service/internal/domain"
)

const (
	passThreshold      = 0.6
	distributionBucket = 5
	recentDateWindow   = 7
	questionTextLimit  = 50
	dateLayout         = "2006-01-02"
)

// GetQuizStats aggregates all committed attempts of a quiz. Dates are reported in UTC.
func (s *QuizService) GetQuizStats(ctx context.Context, quizID int64) (domain.QuizStats, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStats{}, err
	}
	attempts, err := s.attempts.ListAttempts(ctx, quizID)
	if err != nil {
		return domain.QuizStats{}, fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) == 0 {
		return emptyStats(quiz), nil
	}
	answers, err := s.attempts.ListAnswers(ctx, quizID)
	if err != nil {
		return domain.QuizStats{}, fmt.Errorf("list answers: %w", err)
	}
	return computeStats(quiz, attempts, answers), nil
}

func emptyStats(quiz domain.Quiz) domain.QuizStats {
	return domain.QuizStats{
		QuizID:                 quiz.ID,
		QuizTitle:              quiz.Title,
		ScoreDistribution:      make([]int, distributionBucket),
		AttemptDates:           []string{},
		AttemptsPerDate:        []int{},
		QuestionLabels:         []string{},
		QuestionTexts:          []string{},
		QuestionSuccessRates:   []float64{},
		QuestionAttemptCounts:  []int{},
		MostCommonWrongAnswers: []string{},
	}
}

// computeStats expects attempts non-empty and answers ordered by (attempt id, answer id).
func computeStats(quiz domain.Quiz, attempts []domain.Attempt, answers []domain.Answer) domain.QuizStats {
	stats := emptyStats(quiz)
	stats.TotalAttempts = len(attempts)

	totalQuestions := len(quiz.Questions)
	var sum, highest float64
	passed := 0
	perDate := make(map[string]int)
	for _, attempt := range attempts {
		normalized := 0.0
		if totalQuestions > 0 {
			normalized = float64(attempt.Score) / float64(totalQuestions)
		}
		sum += normalized
		if normalized > highest {
			highest = normalized
		}
		if normalized >= passThreshold {
			passed++
		}
		bucket := int(math.Floor(normalized * distributionBucket))
		if bucket > distributionBucket-1 {
			bucket = distributionBucket - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		stats.ScoreDistribution[bucket]++
		perDate[attempt.CreatedAt.In(time.UTC).Format(dateLayout)]++
	}
	n := float64(len(attempts))
	stats.AverageScore = sum * 100 / n
	stats.HighestScore = highest * 100
	stats.PassRate = float64(passed) * 100 / n

	dates := make([]string, 0, len(perDate))
	for d := range perDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > recentDateWindow {
		dates = dates[len(dates)-recentDateWindow:]
	}
	for _, d := range dates {
		stats.AttemptDates = append(stats.AttemptDates, d)
		stats.AttemptsPerDate = append(stats.AttemptsPerDate, perDate[d])
	}

	byQuestion := make(map[int64][]domain.Answer, totalQuestions)
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = append(byQuestion[answer.QuestionID], answer)
	}
	for i, q := range quiz.Questions {
		qAnswers := byQuestion[q.ID]
		correct, _ := q.CorrectOption()
		right := 0
		for _, a := range qAnswers {
			if a.SelectedOptionID == correct.ID {
				right++
			}
		}
		rate := 0.0
		if len(qAnswers) > 0 {
			rate = float64(right) * 100 / float64(len(qAnswers))
		}
		stats.QuestionLabels = append(stats.QuestionLabels, fmt.Sprintf("Q%d", i+1))
		stats.QuestionTexts = append(stats.QuestionTexts, truncate(q.Text, questionTextLimit))
		stats.QuestionSuccessRates = append(stats.QuestionSuccessRates, rate)
		stats.QuestionAttemptCounts = append(stats.QuestionAttemptCounts, len(qAnswers))
		stats.MostCommonWrongAnswers = append(stats.MostCommonWrongAnswers, mostCommonWrong(q, correct.ID, qAnswers))
	}
	return stats
}

// mostCommonWrong returns the text of the most selected incorrect option.
// Ties go to the option encountered first in answer order.
func mostCommonWrong(q domain.Question, correctID int64, answers []domain.Answer) string {
	counts := make(map[int64]int)
	var order []int64
	for _, a := range answers {
		if a.SelectedOptionID == correctID {
			continue
		}
		if _, ok := counts[a.SelectedOptionID]; !ok {
			order = append(order, a.SelectedOptionID)
		}
		counts[a.SelectedOptionID]++
	}

	var best int64
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	if bestCount == 0 {
		return ""
	}
	for _, opt := range q.Options {
		if opt.ID == best {
			return opt.Text
		}
	}
	return ""
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
