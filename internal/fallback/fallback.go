// Package fallback holds the static question sets used when the generator
// is down or its output cannot be parsed. Nothing here does I/O.
package fallback

import (
	"slices"
	"strings"
	"unicode"

	"github.com/pavelanni/interviewer/internal/extract"
	"github.com/pavelanni/interviewer/internal/model"
)

type item struct {
	text, topic, answer string
	options, correct    string
}

type family struct {
	keywords   []string
	subjective []item
	mcq        []item
}

// Questions returns the canned questions of the given kind for role,
// numbered from 1. Unknown roles get the generic set.
func Questions(role string, kind model.QuestionType) []model.Question {
	f := lookup(role)
	items := f.subjective
	if kind == model.QuestionMCQ {
		items = f.mcq
	}
	qs := make([]model.Question, 0, len(items))
	for i, it := range items {
		q := model.Question{
			Ordinal: i + 1,
			Type:    model.QuestionSubjective,
			Text:    it.text,
			Topic:   it.topic,
		}
		if kind == model.QuestionMCQ {
			q.Type = model.QuestionMCQ
			q.Options = it.options
			q.CorrectAnswer = it.correct
		} else {
			q.ModelAnswer = it.answer
			if q.ModelAnswer == "" {
				q.ModelAnswer = extract.ModelAnswerPlaceholder
			}
		}
		qs = append(qs, q)
	}
	return qs
}

// lookup matches role words against family keywords, case-insensitively.
func lookup(role string) family {
	words := strings.FieldsFunc(strings.ToLower(role), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, f := range families {
		for _, w := range words {
			if slices.Contains(f.keywords, w) {
				return f
			}
		}
	}
	return generic
}

var families = []family{java, python, frontend, backend}

var java = family{
	keywords: []string{"java", "spring"},
	subjective: []item{
		{text: "Explain the difference between an abstract class and an interface in Java.", topic: "OOP",
			answer: "An abstract class can hold state, constructors and implemented methods and a class may extend only one. An interface declares a contract, may carry default and static methods since Java 8, and a class may implement many."},
		{text: "How does garbage collection work in the JVM?", topic: "JVM",
			answer: "The JVM tracks reachability from GC roots. Unreachable objects are reclaimed by generational collectors such as G1, which split the heap into young and old regions and collect the young generation most often."},
		{text: "What is the difference between HashMap and ConcurrentHashMap?", topic: "Collections",
			answer: "HashMap is not thread-safe and allows one null key. ConcurrentHashMap supports concurrent reads and fine-grained locked writes, and forbids null keys and values."},
		{text: "Explain checked versus unchecked exceptions.", topic: "Exceptions",
			answer: "Checked exceptions extend Exception and must be declared or caught. Unchecked exceptions extend RuntimeException and signal programming errors that the compiler does not force you to handle."},
		{text: "What does the volatile keyword guarantee?", topic: "Concurrency",
			answer: "Reads and writes of a volatile field go to main memory and establish a happens-before edge, so other threads see the latest value. It does not make compound actions atomic."},
	},
	mcq: []item{
		{text: "Which collection does not allow duplicate elements?", topic: "Collections",
			options: `["A) List", "B) Set", "C) Queue", "D) ArrayList"]`, correct: "B"},
		{text: "What is the default value of an int field in Java?", topic: "Basics",
			options: `["A) null", "B) 1", "C) 0", "D) undefined"]`, correct: "C"},
		{text: "Which keyword prevents a method from being overridden?", topic: "OOP",
			options: `["A) static", "B) final", "C) private", "D) sealed"]`, correct: "B"},
		{text: "Which memory area stores objects created with new?", topic: "JVM",
			options: `["A) Heap", "B) Stack", "C) Metaspace", "D) Registers"]`, correct: "A"},
		{text: "Which interface must a class implement to be used in try-with-resources?", topic: "Exceptions",
			options: `["A) Closeable only", "B) Runnable", "C) AutoCloseable", "D) Serializable"]`, correct: "C"},
	},
}

var python = family{
	keywords: []string{"python", "django", "data", "ml"},
	subjective: []item{
		{text: "Explain the difference between a list and a tuple in Python.", topic: "Data Structures",
			answer: "Lists are mutable and typically hold homogeneous sequences. Tuples are immutable, hashable when their items are, and often used as fixed records or dictionary keys."},
		{text: "What is the Global Interpreter Lock and how does it affect concurrency?", topic: "Concurrency",
			answer: "The GIL lets only one thread execute Python bytecode at a time in CPython. Threads still help with I/O-bound work; CPU-bound work needs multiprocessing or native extensions."},
		{text: "How do decorators work?", topic: "Functions",
			answer: "A decorator is a callable that takes a function and returns a replacement, usually a wrapper closure. The @ syntax applies it at definition time."},
		{text: "Explain generators and the yield keyword.", topic: "Iterators",
			answer: "A function containing yield returns a generator that produces values lazily, suspending its frame between items. It saves memory for large or infinite sequences."},
		{text: "How would you handle missing values in a pandas DataFrame?", topic: "Data Analysis",
			answer: "Detect them with isna, then drop rows or columns with dropna, or impute with fillna using a constant, mean, median or forward fill depending on the data."},
	},
	mcq: []item{
		{text: "Which of these types is immutable?", topic: "Data Structures",
			options: `["A) list", "B) dict", "C) set", "D) tuple"]`, correct: "D"},
		{text: "What does len({}) return?", topic: "Basics",
			options: `["A) 0", "B) 1", "C) None", "D) TypeError"]`, correct: "A"},
		{text: "Which keyword defines a generator?", topic: "Iterators",
			options: `["A) return", "B) yield", "C) async", "D) lambda"]`, correct: "B"},
		{text: "What is the output of type(3 / 2)?", topic: "Basics",
			options: `["A) int", "B) float", "C) decimal", "D) fraction"]`, correct: "B"},
		{text: "Which method adds an item to the end of a list?", topic: "Data Structures",
			options: `["A) add", "B) insert", "C) append", "D) push"]`, correct: "C"},
	},
}

var frontend = family{
	keywords: []string{"frontend", "front", "javascript", "typescript", "react", "web"},
	subjective: []item{
		{text: "Explain event delegation in the DOM.", topic: "DOM",
			answer: "A single listener on a common ancestor handles events that bubble up from its children, using event.target to find the origin. It saves listeners and covers elements added later."},
		{text: "What is the difference between let, const and var?", topic: "JavaScript",
			answer: "var is function-scoped and hoisted with undefined. let and const are block-scoped and live in the temporal dead zone until declared; const forbids reassignment."},
		{text: "How does the JavaScript event loop work?", topic: "JavaScript",
			answer: "The call stack runs synchronous code. When it empties, the loop drains the microtask queue, such as promise callbacks, then takes the next macrotask such as a timer or I/O callback."},
		{text: "What problem does a virtual DOM solve?", topic: "React",
			answer: "It lets a framework diff a cheap in-memory tree against the previous render and apply only the minimal set of real DOM mutations."},
		{text: "How would you improve the load time of a web page?", topic: "Performance",
			answer: "Reduce and compress assets, split and lazy-load bundles, cache with proper headers and a CDN, optimise images, and avoid render-blocking scripts and styles."},
	},
	mcq: []item{
		{text: "Which method converts a JSON string to an object?", topic: "JavaScript",
			options: `["A) JSON.parse", "B) JSON.stringify", "C) JSON.object", "D) JSON.decode"]`, correct: "A"},
		{text: "Which CSS property controls stacking order?", topic: "CSS",
			options: `["A) order", "B) z-index", "C) stack", "D) layer"]`, correct: "B"},
		{text: "What does typeof null return?", topic: "JavaScript",
			options: `["A) null", "B) undefined", "C) object", "D) number"]`, correct: "C"},
		{text: "Which React hook runs side effects after render?", topic: "React",
			options: `["A) useState", "B) useMemo", "C) useRef", "D) useEffect"]`, correct: "D"},
		{text: "Which HTTP status code means Not Modified?", topic: "HTTP",
			options: `["A) 200", "B) 301", "C) 304", "D) 404"]`, correct: "C"},
	},
}

var backend = family{
	keywords: []string{"go", "golang", "backend", "back", "devops", "sre"},
	subjective: []item{
		{text: "How do goroutines differ from operating system threads?", topic: "Concurrency",
			answer: "Goroutines are scheduled by the Go runtime onto a small pool of OS threads, start with a few kilobytes of growable stack, and are cheap to create in large numbers."},
		{text: "Explain how you would design idempotent REST endpoints.", topic: "API Design",
			answer: "Use PUT and DELETE for state-setting operations, accept client idempotency keys for POST, store the outcome keyed by that token and replay it for retries."},
		{text: "What is the difference between optimistic and pessimistic locking?", topic: "Databases",
			answer: "Pessimistic locking holds row locks for the duration of the work. Optimistic locking reads a version, writes only if it is unchanged, and retries on conflict."},
		{text: "How would you roll out a breaking database schema change without downtime?", topic: "Deployment",
			answer: "Expand then contract: add new columns or tables, deploy code that writes both, backfill, switch reads, and remove the old schema in a later release."},
		{text: "What should a service expose for observability?", topic: "Observability",
			answer: "Structured logs with request context, metrics such as rate, errors and latency, traces across service calls, and health and readiness endpoints."},
	},
	mcq: []item{
		{text: "Which statement waits on multiple channel operations in Go?", topic: "Concurrency",
			options: `["A) switch", "B) select", "C) wait", "D) poll"]`, correct: "B"},
		{text: "Which HTTP method is idempotent?", topic: "API Design",
			options: `["A) POST", "B) PATCH", "C) PUT", "D) CONNECT"]`, correct: "C"},
		{text: "Which isolation level prevents phantom reads?", topic: "Databases",
			options: `["A) Read uncommitted", "B) Read committed", "C) Repeatable read", "D) Serializable"]`, correct: "D"},
		{text: "What does a container image layer represent?", topic: "Deployment",
			options: `["A) A filesystem diff", "B) A running process", "C) A network namespace", "D) A volume"]`, correct: "A"},
		{text: "Which tool ships with Go for finding data races?", topic: "Tooling",
			options: `["A) go vet", "B) go test -race", "C) gofmt", "D) go mod tidy"]`, correct: "B"},
	},
}

var generic = family{
	subjective: []item{
		{text: "Describe a challenging project you worked on and how you handled it.", topic: "Experience"},
		{text: "How do you approach debugging a problem you have never seen before?", topic: "Problem Solving"},
		{text: "Explain a technical concept from your field to a non-technical person.", topic: "Communication"},
		{text: "How do you keep your skills up to date?", topic: "Learning"},
		{text: "Describe a time you disagreed with a teammate and how it was resolved.", topic: "Teamwork"},
	},
	mcq: []item{
		{text: "What is the time complexity of binary search?", topic: "Algorithms",
			options: `["A) O(n)", "B) O(log n)", "C) O(n log n)", "D) O(1)"]`, correct: "B"},
		{text: "Which data structure works first in, first out?", topic: "Data Structures",
			options: `["A) Stack", "B) Tree", "C) Queue", "D) Graph"]`, correct: "C"},
		{text: "What does SQL stand for?", topic: "Databases",
			options: `["A) Structured Query Language", "B) Simple Query Language", "C) Sequential Query Logic", "D) Standard Question Language"]`, correct: "A"},
		{text: "Which of these is a version control system?", topic: "Tooling",
			options: `["A) Docker", "B) Git", "C) Nginx", "D) Redis"]`, correct: "B"},
		{text: "What does HTTP status 500 mean?", topic: "Web",
			options: `["A) Not found", "B) Unauthorized", "C) Bad request", "D) Internal server error"]`, correct: "D"},
	},
}
