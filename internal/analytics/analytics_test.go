package analytics

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewEngine(st, slog.New(slog.NewTextHandler(io.Discard, nil)), nil), st
}

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// seed stores a session with the given questions and answer scores. Scores
// beyond len(qs) are ignored; a nil score slice leaves questions unanswered.
// Scores are only written when the session is completed.
func seed(t *testing.T, st *store.Store, owner, role string, day int, qs []model.Question, scores []int, complete bool) model.Session {
	t.Helper()
	id, err := st.CreateSession(model.Session{
		Owner:      owner,
		Role:       role,
		Type:       model.TypeFull,
		Difficulty: model.DifficultyMedium,
		CreatedAt:  baseTime.AddDate(0, 0, day),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	saved, err := st.MaterializeQuestions(id, qs)
	if err != nil {
		t.Fatalf("MaterializeQuestions: %v", err)
	}
	var answers []model.Answer
	total := 0
	for i, score := range scores {
		if i >= len(saved) {
			break
		}
		a, err := st.UpsertAnswer(model.Answer{SessionID: id, QuestionID: saved[i].ID, Text: "answer"})
		if err != nil {
			t.Fatalf("UpsertAnswer: %v", err)
		}
		a.Score = score
		answers = append(answers, a)
		total += score
	}
	if complete {
		if err := st.CompleteSession(id, total, answers, baseTime.AddDate(0, 0, day).Add(time.Hour)); err != nil {
			t.Fatalf("CompleteSession: %v", err)
		}
	}
	sess, err := st.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	return sess
}

func subjective(topics ...string) []model.Question {
	qs := make([]model.Question, len(topics))
	for i, topic := range topics {
		qs[i] = model.Question{Type: model.QuestionSubjective, Text: "Explain " + topic, Topic: topic}
	}
	return qs
}

func mcq(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{Type: model.QuestionMCQ, Text: "Pick one", Options: `["A) x", "B) y"]`, CorrectAnswer: "A"}
	}
	return qs
}

func TestSessionPercent(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		total     int
		questions []model.Question
		want      float64
	}{
		{"mixed weighting", 6, 3, append(subjective("a"), mcq(2)...), 50},
		{"all mcq", 3, 4, mcq(4), 75},
		{"capped", 15, 1, subjective("a"), 100},
		{"no questions approximates by count", 2, 4, nil, 50},
		{"nothing to score", 5, 0, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.Session{Score: tt.score, TotalQuestions: tt.total}
			if got := SessionPercent(s, tt.questions); got != tt.want {
				t.Errorf("SessionPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDifficultyFor(t *testing.T) {
	tests := []struct {
		avg  float64
		want model.Difficulty
	}{
		{85, model.DifficultyHard},
		{80, model.DifficultyHard},
		{79.9, model.DifficultyMedium},
		{60, model.DifficultyMedium},
		{50, model.DifficultyMedium},
		{30, model.DifficultyEasy},
		{0, model.DifficultyEasy},
	}
	for _, tt := range tests {
		if got := DifficultyFor(tt.avg); got != tt.want {
			t.Errorf("DifficultyFor(%v) = %q, want %q", tt.avg, got, tt.want)
		}
	}
}

func TestRecommendDifficulty(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   model.Difficulty
	}{
		{"no history", nil, model.DifficultyMedium},
		{"averaging 85", []int{8, 9}, model.DifficultyHard},
		{"averaging 60", []int{6}, model.DifficultyMedium},
		{"averaging 30", []int{2, 4}, model.DifficultyEasy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, st := newTestEngine(t)
			for i, score := range tt.scores {
				seed(t, st, "ann", "Go Developer", i, subjective("Go"), []int{score}, true)
			}
			// Sessions that are not completed or belong elsewhere do not count.
			seed(t, st, "ann", "Go Developer", 10, subjective("Go"), []int{10}, false)
			seed(t, st, "bob", "Go Developer", 11, subjective("Go"), []int{0}, true)

			got, err := e.RecommendDifficulty("ann", "Go Developer")
			if err != nil {
				t.Fatalf("RecommendDifficulty: %v", err)
			}
			if got != tt.want {
				t.Errorf("RecommendDifficulty() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTopicAverages(t *testing.T) {
	qs := []model.Question{
		{ID: 1, Type: model.QuestionSubjective, Topic: "OOP"},
		{ID: 2, Type: model.QuestionSubjective, Topic: "OOP"},
		{ID: 3, Type: model.QuestionSubjective, Topic: "Syntax"},
		{ID: 4, Type: model.QuestionMCQ, Topic: "Syntax"},
		{ID: 5, Type: model.QuestionSubjective},
	}
	answers := []model.Answer{
		{QuestionID: 1, Score: 8},
		{QuestionID: 2, Score: 0},
		{QuestionID: 3, Score: 10},
		{QuestionID: 4, Score: 1},
	}
	got := TopicAverages(qs, answers)
	want := map[string]float64{"OOP": 40, "Syntax": 100, model.DefaultTopic: 0}
	if len(got) != len(want) {
		t.Fatalf("TopicAverages() = %v, want %v", got, want)
	}
	for topic, avg := range want {
		if got[topic] != avg {
			t.Errorf("topic %q = %v, want %v", topic, got[topic], avg)
		}
	}

	weak := Weak(got)
	wantWeak := []string{model.DefaultTopic, "OOP"}
	if len(weak) != len(wantWeak) {
		t.Fatalf("Weak() = %v, want %v", weak, wantWeak)
	}
	for i := range weak {
		if weak[i] != wantWeak[i] {
			t.Errorf("Weak()[%d] = %q, want %q", i, weak[i], wantWeak[i])
		}
	}

	if topic, ok := Primary(got); !ok || topic != model.DefaultTopic {
		t.Errorf("Primary() = %q, %v, want %q", topic, ok, model.DefaultTopic)
	}
	if _, ok := Primary(map[string]float64{"Go": 80}); ok {
		t.Error("Primary() should report no weak topic")
	}
}

func TestQuestionPercent(t *testing.T) {
	tests := []struct {
		kind  model.QuestionType
		score int
		want  float64
	}{
		{model.QuestionMCQ, 1, 100},
		{model.QuestionMCQ, 0, 0},
		{model.QuestionSubjective, 7, 70},
		{model.QuestionSubjective, 10, 100},
		{model.QuestionMCQ, 3, 100},
	}
	for _, tt := range tests {
		if got := QuestionPercent(model.Question{Type: tt.kind}, tt.score); got != tt.want {
			t.Errorf("QuestionPercent(%s, %d) = %v, want %v", tt.kind, tt.score, got, tt.want)
		}
	}
}

// Topics compare on the same 0-100 scale as session scores, so a half-right
// topic sits exactly on the threshold and is not weak.
func TestWeakTopicBoundary(t *testing.T) {
	tests := []struct {
		name     string
		scores   []int
		wantAvg  float64
		wantWeak bool
	}{
		{"ten and zero", []int{10, 0}, 50, false},
		{"zero and ten", []int{0, 10}, 50, false},
		{"just under half", []int{9, 0}, 45, true},
		{"ten zero zero", []int{10, 0, 0}, 33.33, true},
		{"all zero", []int{0, 0}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qs []model.Question
			var answers []model.Answer
			for i, s := range tt.scores {
				id := int64(i + 1)
				qs = append(qs, model.Question{ID: id, Type: model.QuestionSubjective, Topic: "OOP"})
				answers = append(answers, model.Answer{QuestionID: id, Score: s})
			}
			qs = append(qs, model.Question{ID: 99, Type: model.QuestionSubjective, Topic: "Syntax"})
			answers = append(answers, model.Answer{QuestionID: 99, Score: 10})

			avgs := TopicAverages(qs, answers)
			if avgs["OOP"] != tt.wantAvg {
				t.Errorf("OOP average = %v, want %v", avgs["OOP"], tt.wantAvg)
			}
			weak := Weak(avgs)
			gotWeak := len(weak) == 1 && weak[0] == "OOP"
			if gotWeak != tt.wantWeak {
				t.Errorf("Weak() = %v, want OOP weak %v", weak, tt.wantWeak)
			}
			if len(weak) > 1 {
				t.Errorf("Weak() = %v, Syntax should never be weak", weak)
			}
			topic, ok := Primary(avgs)
			if ok != tt.wantWeak || (ok && topic != "OOP") {
				t.Errorf("Primary() = %q, %v, want OOP %v", topic, ok, tt.wantWeak)
			}
		})
	}
}

func TestPrimaryTieBreak(t *testing.T) {
	avgs := map[string]float64{"Zeta": 1, "Alpha": 1, "Mid": 3}
	if topic, _ := Primary(avgs); topic != "Alpha" {
		t.Errorf("Primary() = %q, want Alpha", topic)
	}
}

func TestWeakTopicsFromStore(t *testing.T) {
	e, st := newTestEngine(t)
	sess := seed(t, st, "ann", "Java Developer", 0, subjective("OOP", "OOP", "Syntax"), []int{4, 0, 9}, true)

	scores, err := e.TopicScores(sess.ID)
	if err != nil {
		t.Fatalf("TopicScores: %v", err)
	}
	if scores["OOP"] != 20 || scores["Syntax"] != 90 {
		t.Errorf("scores = %v, want OOP 20 and Syntax 90", scores)
	}
	weak, err := e.WeakTopics(sess.ID)
	if err != nil {
		t.Fatalf("WeakTopics: %v", err)
	}
	if len(weak) != 1 || weak[0] != "OOP" {
		t.Errorf("WeakTopics() = %v, want [OOP]", weak)
	}
	topic, ok, err := e.PrimaryWeakTopic(sess.ID)
	if err != nil || !ok || topic != "OOP" {
		t.Errorf("PrimaryWeakTopic() = %q, %v, %v", topic, ok, err)
	}

	if _, err := e.TopicScores(9999); err == nil {
		t.Error("TopicScores for unknown session should fail")
	}
}

func TestLatestCompleted(t *testing.T) {
	e, st := newTestEngine(t)
	if s, err := e.LatestCompleted("ann", "Go"); err != nil || s != nil {
		t.Fatalf("LatestCompleted with no history = %v, %v", s, err)
	}
	seed(t, st, "ann", "Go", 0, subjective("a"), []int{1}, true)
	want := seed(t, st, "ann", "Go", 1, subjective("b"), []int{2}, true)
	seed(t, st, "ann", "Go", 2, subjective("c"), nil, false)

	got, err := e.LatestCompleted("ann", "Go")
	if err != nil {
		t.Fatalf("LatestCompleted: %v", err)
	}
	if got == nil || got.ID != want.ID {
		t.Errorf("LatestCompleted() = %+v, want session %d", got, want.ID)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		avg, recent float64
		want        float64
		level       model.ConfidenceLevel
	}{
		{80, 90, 83, model.ConfidenceHigh},
		{100, 100, 100, model.ConfidenceHigh},
		{50, 50, 50, model.ConfidenceMedium},
		{40, 40, 40, model.ConfidenceLow},
		{120, 120, 100, model.ConfidenceHigh},
	}
	for _, tt := range tests {
		got, level := Confidence(tt.avg, tt.recent)
		if math.Abs(got-tt.want) > 1e-9 || level != tt.level {
			t.Errorf("Confidence(%v, %v) = %v, %q, want %v, %q", tt.avg, tt.recent, got, level, tt.want, tt.level)
		}
	}
}

func TestUpdateSkillProfile(t *testing.T) {
	e, st := newTestEngine(t)

	p, err := e.UpdateSkillProfile("ann", "Go Developer")
	if err != nil || p != nil {
		t.Fatalf("UpdateSkillProfile with no completed sessions = %v, %v", p, err)
	}

	// Percentages 40, 60, 80, 100 oldest to newest.
	for i, score := range []int{4, 6, 8, 10} {
		seed(t, st, "ann", "Go Developer", i, subjective("Channels"), []int{score}, true)
	}
	seed(t, st, "ann", "Go Developer", 9, subjective("Maps"), nil, false)

	p, err = e.UpdateSkillProfile("ann", "Go Developer")
	if err != nil {
		t.Fatalf("UpdateSkillProfile: %v", err)
	}
	if p == nil {
		t.Fatal("expected a profile")
	}
	if p.AvgScore != 70 || p.RecentTrend != 80 {
		t.Errorf("avg = %v trend = %v, want 70 and 80", p.AvgScore, p.RecentTrend)
	}
	if p.ConfidenceScore != 73 || p.ConfidenceLevel != model.ConfidenceHigh {
		t.Errorf("confidence = %v %q, want 73 HIGH", p.ConfidenceScore, p.ConfidenceLevel)
	}
	if p.TotalSessions != 5 || p.TotalCompleted != 4 {
		t.Errorf("totals = %d/%d, want 5/4", p.TotalSessions, p.TotalCompleted)
	}
	// Channels averages 70%, between the weak and strong thresholds.
	if p.WeakTopics != "" || p.StrongTopics != "" {
		t.Errorf("weak = %q strong = %q", p.WeakTopics, p.StrongTopics)
	}

	stored, err := e.SkillProfile("ann", "Go Developer")
	if err != nil || stored == nil || stored.ConfidenceScore != 73 {
		t.Errorf("SkillProfile() = %+v, %v", stored, err)
	}

	// A second update overwrites rather than merges.
	seed(t, st, "ann", "Go Developer", 20, subjective("Channels"), []int{0}, true)
	p, err = e.UpdateSkillProfile("ann", "Go Developer")
	if err != nil {
		t.Fatalf("second UpdateSkillProfile: %v", err)
	}
	if p.AvgScore != 56 || p.TotalCompleted != 5 {
		t.Errorf("after overwrite avg = %v completed = %d, want 56 and 5", p.AvgScore, p.TotalCompleted)
	}
	all, err := e.SkillProfiles("ann")
	if err != nil || len(all) != 1 {
		t.Errorf("SkillProfiles() = %d profiles, %v", len(all), err)
	}
}

func TestProfileTopicClassification(t *testing.T) {
	e, st := newTestEngine(t)
	seed(t, st, "ann", "Go Developer", 0, subjective("Maps", "Channels", "Generics"), []int{9, 2, 6}, true)
	seed(t, st, "ann", "Go Developer", 1, subjective("Maps", "Channels"), []int{7, 3}, true)

	p, err := e.UpdateSkillProfile("ann", "Go Developer")
	if err != nil || p == nil {
		t.Fatalf("UpdateSkillProfile = %v, %v", p, err)
	}
	if p.WeakTopics != "Channels" || p.StrongTopics != "Maps" {
		t.Errorf("weak = %q strong = %q, want Channels and Maps", p.WeakTopics, p.StrongTopics)
	}
}

func TestRank(t *testing.T) {
	completed := func(owner, role string, score, total int) model.Session {
		return model.Session{Owner: owner, Role: role, Score: score, TotalQuestions: total, Status: model.StatusCompleted}
	}
	scored := []ScoredSession{
		{completed("cat", "Go", 9, 10), 90},
		{completed("ann", "Go", 5, 10), 50},
		{completed("ann", "Go", 7, 10), 70},
		{completed("bob", "Java", 10, 10), 100},
		{completed("dan", "go", 12, 10), 120},
		{model.Session{Owner: "eve", Role: "Go", Score: 10, TotalQuestions: 10, Status: model.StatusInProgress}, 100},
		{completed("fay", "Go", 0, 0), 0},
	}

	all := Rank(scored, "")
	wantOwners := []string{"dan", "bob", "cat", "ann"}
	if len(all) != len(wantOwners) {
		t.Fatalf("Rank() = %+v", all)
	}
	for i, owner := range wantOwners {
		if all[i].Owner != owner {
			t.Errorf("Rank()[%d].Owner = %q, want %q", i, all[i].Owner, owner)
		}
		if all[i].AvgScore > 100 {
			t.Errorf("Rank()[%d].AvgScore = %v exceeds 100", i, all[i].AvgScore)
		}
	}
	if all[3].AvgScore != 60 || all[3].TotalSessions != 2 {
		t.Errorf("ann = %+v, want avg 60 over 2 sessions", all[3])
	}

	goOnly := Rank(scored, "GO")
	if len(goOnly) != 3 || goOnly[0].Owner != "dan" {
		t.Errorf("Rank(GO) = %+v", goOnly)
	}
}

func TestRankTopTen(t *testing.T) {
	var scored []ScoredSession
	for i := range 15 {
		owner := string(rune('a' + i))
		s := model.Session{Owner: owner, Role: "Go", Score: i, TotalQuestions: 10, Status: model.StatusCompleted}
		scored = append(scored, ScoredSession{s, float64(i) * 5})
	}
	got := Rank(scored, "")
	if len(got) != LeaderboardSize {
		t.Fatalf("len(Rank()) = %d, want %d", len(got), LeaderboardSize)
	}
	for i := 1; i < len(got); i++ {
		if got[i].AvgScore >= got[i-1].AvgScore {
			t.Errorf("not strictly descending at %d: %v >= %v", i, got[i].AvgScore, got[i-1].AvgScore)
		}
	}
}

func TestLeaderboardFromStore(t *testing.T) {
	e, st := newTestEngine(t)
	seed(t, st, "ann", "Go", 0, mcq(4), []int{1, 1, 1, 0}, true)
	seed(t, st, "bob", "Go", 1, mcq(4), []int{1, 0, 0, 0}, true)
	seed(t, st, "cat", "Go", 2, mcq(4), []int{1, 1, 1, 1}, true)
	seed(t, st, "dan", "Java", 3, mcq(4), []int{1, 1, 0, 0}, true)

	got, err := e.Leaderboard("go")
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	want := []struct {
		owner string
		avg   float64
	}{{"cat", 100}, {"ann", 75}, {"bob", 25}}
	if len(got) != len(want) {
		t.Fatalf("Leaderboard() = %+v", got)
	}
	for i, w := range want {
		if got[i].Owner != w.owner || got[i].AvgScore != w.avg {
			t.Errorf("entry %d = %+v, want %s %v", i, got[i], w.owner, w.avg)
		}
	}
}

func TestDashboard(t *testing.T) {
	e, st := newTestEngine(t)

	empty, err := e.Dashboard("ann")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if empty.TotalSessions != 0 || empty.BestRole != "N/A" || empty.LastInterviewDate != nil {
		t.Errorf("empty dashboard = %+v", empty)
	}

	seed(t, st, "ann", "Go", 0, subjective("a"), []int{9}, true)
	seed(t, st, "ann", "Go", 1, subjective("a"), []int{7}, true)
	seed(t, st, "ann", "Java", 2, subjective("a"), []int{3}, true)
	last := seed(t, st, "ann", "Python", 3, subjective("a"), nil, false)
	seed(t, st, "bob", "Go", 4, subjective("a"), []int{10}, true)

	d, err := e.Dashboard("ann")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TotalSessions != 4 {
		t.Errorf("TotalSessions = %d, want 4", d.TotalSessions)
	}
	if math.Abs(d.AverageScore-63.3) > 1e-9 {
		t.Errorf("AverageScore = %v, want 63.3", d.AverageScore)
	}
	if d.HighestScore != 9 {
		t.Errorf("HighestScore = %d, want 9", d.HighestScore)
	}
	if d.RoleWiseAverage["Go"] != 80 || d.RoleWiseAverage["Java"] != 30 {
		t.Errorf("RoleWiseAverage = %v", d.RoleWiseAverage)
	}
	if d.BestRole != "Go" || d.WeakestRole != "Java" {
		t.Errorf("best = %q weakest = %q", d.BestRole, d.WeakestRole)
	}
	if len(d.WeakAreas) != 1 || d.WeakAreas[0] != "Java" {
		t.Errorf("WeakAreas = %v", d.WeakAreas)
	}
	if d.LastInterviewDate == nil || !d.LastInterviewDate.Equal(last.CreatedAt) {
		t.Errorf("LastInterviewDate = %v, want %v", d.LastInterviewDate, last.CreatedAt)
	}
	if len(d.RecentSessions) != 4 || d.RecentSessions[0].SessionID != last.ID {
		t.Errorf("RecentSessions = %+v", d.RecentSessions)
	}
}
