package browse

import (
	"context"
	"fmt"
)

// SearchProvider performs a web search and returns a short, spoken summary
// of the top results plus the links presented to the user (for later
// click_link/select_link resolution against link_index/link_text).
type SearchProvider interface {
	Search(ctx context.Context, query string) (summary string, links []Link, err error)
}

// Link is one result or page link the user can refer to by ordinal or text.
type Link struct {
	Index int
	Text  string
	URL   string
}

// PageIngestor stores the current page's text for later document-QA
// retrieval (the "store_page"/RAG-ingest path).
type PageIngestor interface {
	IngestPage(ctx context.Context, url, text string) error
}

// defaultExecutor carries out a resolved Intent. Search is answered from a
// SearchProvider; click/select/scroll/go_back/close_tab are all actions that
// must run on the user's own browser, so they are relayed to the client via
// onOpenURL/setSelection rather than executed here, matching the spec's
// "dispatched via an open_url / client-action event" rule.
type defaultExecutor struct {
	search  SearchProvider
	ingest  PageIngestor
	lastLinks []Link
}

// NewExecutor creates an Executor. search may be nil, in which case search
// reports that the capability is unavailable. ingest is stored but not
// called: store_page always answers that storing is not supported here.
func NewExecutor(search SearchProvider, ingest PageIngestor) Executor {
	return &defaultExecutor{search: search, ingest: ingest}
}

func (e *defaultExecutor) Execute(ctx context.Context, intent Intent, setSelection func(string), onOpenURL func(string)) (string, error) {
	switch intent.Action {
	case ActionSearch:
		return e.executeSearch(ctx, intent.Query)
	case ActionOpenURL:
		if onOpenURL != nil {
			onOpenURL(intent.URL)
		}
		return fmt.Sprintf("Opening %s.", intent.URL), nil
	case ActionClickLink:
		return e.executeClick(intent, setSelection, onOpenURL)
	case ActionSelectLink:
		return e.executeSelect(intent, setSelection)
	case ActionStorePage:
		return "Open the page you want stored is not supported from here yet.", nil
	case ActionGoBack:
		if onOpenURL != nil {
			onOpenURL("__client_action:go_back")
		}
		return "Going back.", nil
	case ActionCloseTab:
		if onOpenURL != nil {
			onOpenURL("__client_action:close_tab")
		}
		return "Closing tab.", nil
	case ActionScrollUp, ActionScrollDown, ActionScrollLeft, ActionScrollRight:
		if onOpenURL != nil {
			onOpenURL("__client_action:" + string(intent.Action))
		}
		return "Scrolling.", nil
	default:
		return "Could not complete that action.", nil
	}
}

func (e *defaultExecutor) executeSearch(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "What would you like to search for?", nil
	}
	if e.search == nil {
		return "Search is not available right now.", nil
	}
	summary, links, err := e.search.Search(ctx, query)
	if err != nil {
		return "", err
	}
	e.lastLinks = links
	return summary, nil
}

func (e *defaultExecutor) executeClick(intent Intent, setSelection func(string), onOpenURL func(string)) (string, error) {
	link, ok := e.resolveLink(intent)
	if !ok {
		return "I couldn't find that link.", nil
	}
	if onOpenURL != nil {
		onOpenURL(link.URL)
	}
	if setSelection != nil {
		setSelection("")
	}
	return fmt.Sprintf("Clicked link: %s", link.Text), nil
}

func (e *defaultExecutor) executeSelect(intent Intent, setSelection func(string)) (string, error) {
	link, ok := e.resolveLink(intent)
	if !ok {
		return "I couldn't find that link.", nil
	}
	if setSelection != nil {
		setSelection(link.Text)
	}
	return fmt.Sprintf("Selected: %s", link.Text), nil
}

func (e *defaultExecutor) resolveLink(intent Intent) (Link, bool) {
	if intent.LinkIndex > 0 {
		for _, l := range e.lastLinks {
			if l.Index == intent.LinkIndex {
				return l, true
			}
		}
		return Link{}, false
	}
	if intent.LinkText != "" {
		for _, l := range e.lastLinks {
			if l.Text == intent.LinkText {
				return l, true
			}
		}
	}
	if len(e.lastLinks) > 0 {
		return e.lastLinks[0], true
	}
	return Link{}, false
}
