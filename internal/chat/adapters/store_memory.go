package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	ports "kbchat/internal/chat/ports"
)

// MemoryArticleStore is the volatile fallback article store. It lives for
// the process lifetime only, is seeded with a default set at startup, and
// never checks titles against the persistent store.
type MemoryArticleStore struct {
	mu            sync.RWMutex
	articles      []ports.Article
	minKeywordLen int
}

// NewMemoryArticleStore creates a fallback store seeded with the default
// articles. Fallback search keeps query tokens longer than minKeywordLen.
func NewMemoryArticleStore(minKeywordLen int) *MemoryArticleStore {
	if minKeywordLen <= 0 {
		minKeywordLen = 3
	}
	return &MemoryArticleStore{
		articles:      seedArticles(),
		minKeywordLen: minKeywordLen,
	}
}

// Search is a case-insensitive keyword scan: the query is split on
// whitespace, tokens longer than minKeywordLen survive, and an article
// matches when title+content contains any surviving token. Results keep
// insertion order; there is no ranking.
func (s *MemoryArticleStore) Search(ctx context.Context, query string, k int) ([]ports.Article, error) {
	keywords := make([]string, 0, 4)
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) > s.minKeywordLen {
			keywords = append(keywords, tok)
		}
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []ports.Article
	for _, a := range s.articles {
		text := strings.ToLower(a.Title + " " + a.Content)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matches = append(matches, a)
				break
			}
		}
		if k > 0 && len(matches) >= k {
			break
		}
	}
	return matches, nil
}

// List returns all articles in insertion order, capped at limit when
// limit > 0.
func (s *MemoryArticleStore) List(ctx context.Context, limit int) ([]ports.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.articles)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ports.Article, n)
	copy(out, s.articles[:n])
	return out, nil
}

// Titles returns up to limit article titles in insertion order.
func (s *MemoryArticleStore) Titles(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make([]string, 0, len(s.articles))
	for _, a := range s.articles {
		if limit > 0 && len(titles) >= limit {
			break
		}
		titles = append(titles, a.Title)
	}
	return titles, nil
}

// Create appends an article. Duplicate titles are not rejected here; the
// uniqueness invariant belongs to the persistent store alone.
func (s *MemoryArticleStore) Create(ctx context.Context, article *ports.Article) error {
	if article.ID == "" {
		article.ID = "mem_" + uuid.New().String()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now()
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = append(s.articles, *article)
	return nil
}

// Delete is not supported on the fallback store; articles added here
// vanish on restart anyway.
func (s *MemoryArticleStore) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("fallback store does not support delete")
}

// MemoryConversationStore is the volatile fallback transcript store: a
// process-wide map from sessionID to transcript. It is also the mirror
// target when a persistent save fails mid-session.
type MemoryConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*ports.Conversation
}

// NewMemoryConversationStore creates an empty fallback conversation store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{convs: make(map[string]*ports.Conversation)}
}

// Find returns a copy of the stored conversation, or ErrNotFound.
func (s *MemoryConversationStore) Find(ctx context.Context, sessionID string) (*ports.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[sessionID]
	if !ok {
		return nil, ports.ErrNotFound
	}

	out := *conv
	out.Turns = make([]ports.Turn, len(conv.Turns))
	copy(out.Turns, conv.Turns)
	return &out, nil
}

// Save replaces the stored transcript for the session.
func (s *MemoryConversationStore) Save(ctx context.Context, conv *ports.Conversation) error {
	stored := *conv
	stored.Turns = make([]ports.Turn, len(conv.Turns))
	copy(stored.Turns, conv.Turns)
	stored.LastActive = time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.LastActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.SessionID] = &stored
	return nil
}

func seedArticles() []ports.Article {
	now := time.Now()
	return []ports.Article{
		{
			ID:        "default_1",
			Title:     "Welcome to AI Chatbot",
			Content:   "This is an AI-powered Knowledge Base chatbot. You can add articles to the knowledge base, and I will use them to answer your questions! If you provide a valid OpenAI API Key, I can also answer general questions.",
			Tags:      []string{"help", "guide"},
			CreatedAt: now,
		},
		{
			ID:        "default_2",
			Title:     "React",
			Content:   "React is a library for building user interfaces. It is component-based and declarative.",
			Tags:      []string{"react", "technology"},
			CreatedAt: now,
		},
		{
			ID:        "default_3",
			Title:     "Node.js Basics",
			Content:   "Node.js is an open-source, cross-platform JavaScript runtime environment that executes JavaScript code outside a web browser. It is widely used for building scalable network applications.",
			Tags:      []string{"nodejs", "backend", "javascript"},
			CreatedAt: now,
		},
		{
			ID:        "default_4",
			Title:     "Express.js Routing",
			Content:   `Express.js is a minimal Node.js web application framework. Routing refers to how an application's endpoints (URIs) respond to client requests. basic routing looks like: app.get("/", (req, res) => res.send("Hello World!"))`,
			Tags:      []string{"express", "routing", "backend"},
			CreatedAt: now,
		},
		{
			ID:        "default_5",
			Title:     "MongoDB Atlas Interface",
			Content:   "MongoDB Atlas is a fully-managed cloud database service. To connect, you need to whitelist your IP address in Network Access and create a Database User in Database Access. Then use the connection string in your .env file.",
			Tags:      []string{"mongodb", "database", "cloud"},
			CreatedAt: now,
		},
		{
			ID:        "default_6",
			Title:     "Trobleshooting API Errors (401)",
			Content:   "A 401 Unauthorized error typically means the OpenAI API Key in your .env file is missing, invalid, or expired. You must generate a new key at platform.openai.com/api-keys and restart the server.",
			Tags:      []string{"troubleshooting", "api", "errors"},
			CreatedAt: now,
		},
	}
}

// Ensure the memory variants implement their interfaces.
var (
	_ ports.ArticleStore      = (*MemoryArticleStore)(nil)
	_ ports.ConversationStore = (*MemoryConversationStore)(nil)
)
