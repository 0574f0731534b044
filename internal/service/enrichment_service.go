package service

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/pkg/config"
)

// SlackAPI is the chat-side surface the enrichment needs. Implemented
// by client.SlackClient; faked in tests.
type SlackAPI interface {
	// CreateChannelIfNotExists returns true when the channel was
	// created, false when it already existed.
	CreateChannelIfNotExists(ctx context.Context, name string) (bool, error)
}

// ConfluenceAPI is the wiki-side surface the enrichment needs.
type ConfluenceAPI interface {
	GetPageBody(ctx context.Context, pageID string) (string, error)
	// FindLinkForPage returns the web link of an existing page, or ""
	// when no page with that title exists in the space.
	FindLinkForPage(ctx context.Context, spaceKey, title string) (string, error)
	CreateSessionPage(ctx context.Context, title, body string) (string, error)
	ListSessionPages(ctx context.Context) ([]string, error)
}

var channelPunctuation = regexp.MustCompile(`[+\-/\\(){}\[\]<>!§$%&=?*#€¿_".,:;]`)
var channelWhitespace = regexp.MustCompile(`\s+`)

// EnrichmentService decorates a generated office with chat channels
// and wiki pages for slot-tagged rooms. Both decorations are
// get-or-create: re-running a sync never duplicates a channel or page.
type EnrichmentService struct {
	slackCfg      config.SlackConfig
	confluenceCfg config.ConfluenceConfig
	links         *LinkExtractor
	logger        *zap.Logger
}

func NewEnrichmentService(slackCfg config.SlackConfig, confluenceCfg config.ConfluenceConfig, links *LinkExtractor, logger *zap.Logger) *EnrichmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentService{
		slackCfg:      slackCfg,
		confluenceCfg: confluenceCfg,
		links:         links,
		logger:        logger,
	}
}

// AddSlackChannels ensures a channel per flagged room and appends the
// channel link to the room. Rooms without the flag pass through
// untouched.
func (e *EnrichmentService) AddSlackChannels(ctx context.Context, office *dto.Office, slack SlackAPI) error {
	for i := range office.Rooms {
		room := &office.Rooms[i]
		if !room.HasSlackChannel {
			continue
		}

		name := e.channelName(room.Name)
		created, err := slack.CreateChannelIfNotExists(ctx, name)
		if err != nil {
			return fmt.Errorf("create slack channel %s: %w", name, err)
		}
		if created {
			e.logger.Info("created slack channel", zap.String("channel", name))
		} else {
			e.logger.Info("slack channel already exists", zap.String("channel", name))
		}

		href := fmt.Sprintf("%s/app_redirect?channel=%s", e.slackCfg.BaseURL, name)
		room.Links = append(room.Links, dto.RoomLink{
			Text: "Slack",
			Href: href,
			Icon: e.links.IconURLFor(href),
		})
	}
	return nil
}

// channelName derives the channel from the room name: lowercase,
// punctuation stripped, whitespace collapsed to underscores, prefixed
// and capped at slack's 80-char limit.
func (e *EnrichmentService) channelName(roomName string) string {
	title := strings.ToLower(roomName)
	title = channelPunctuation.ReplaceAllString(title, "")
	title = channelWhitespace.ReplaceAllString(title, "_")

	name := fmt.Sprintf("%s-%s", e.slackCfg.ChannelPrefix, title)
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}

// AddConfluencePages ensures a session page per flagged room, built
// from the template page with $LINKS replaced by the room's links, and
// appends the page link to the room. Pages whose room disappeared are
// only reported, never deleted.
func (e *EnrichmentService) AddConfluencePages(ctx context.Context, office *dto.Office, confluence ConfluenceAPI) error {
	template, err := confluence.GetPageBody(ctx, e.confluenceCfg.TemplatePageID)
	if err != nil {
		return fmt.Errorf("load confluence template page: %w", err)
	}

	wanted := make(map[string]bool)
	for i := range office.Rooms {
		room := &office.Rooms[i]
		if !room.HasSlackChannel {
			continue
		}

		title := fmt.Sprintf("%s - Session %q", e.confluenceCfg.PageTitlePrefix, room.Name)
		wanted[title] = true

		pageLink, err := e.getOrCreatePage(ctx, confluence, room, title, template)
		if err != nil {
			return err
		}

		room.Links = append(room.Links, dto.RoomLink{
			Text: "Confluence",
			Href: pageLink,
			Icon: e.links.IconURLFor(e.confluenceCfg.BaseURL),
		})
	}

	return e.reportObsoletePages(ctx, confluence, wanted)
}

func (e *EnrichmentService) getOrCreatePage(ctx context.Context, confluence ConfluenceAPI, room *dto.Room, title, template string) (string, error) {
	existing, err := confluence.FindLinkForPage(ctx, e.confluenceCfg.SpaceKey, title)
	if err != nil {
		return "", fmt.Errorf("look up confluence page %q: %w", title, err)
	}
	if existing != "" {
		e.logger.Info("confluence page already exists", zap.String("title", title))
		return existing, nil
	}

	items := make([]string, 0, len(room.Links))
	for _, link := range room.Links {
		items = append(items, fmt.Sprintf(`<li><a href="%s">%s</a></li>`,
			html.EscapeString(link.Href), html.EscapeString(link.Text)))
	}
	body := strings.Replace(template, "$LINKS", fmt.Sprintf("<ul>%s</ul>", strings.Join(items, "")), 1)

	pageLink, err := confluence.CreateSessionPage(ctx, title, body)
	if err != nil {
		return "", fmt.Errorf("create confluence page %q: %w", title, err)
	}
	e.logger.Info("created confluence page", zap.String("title", title))
	return pageLink, nil
}

func (e *EnrichmentService) reportObsoletePages(ctx context.Context, confluence ConfluenceAPI, wanted map[string]bool) error {
	titles, err := confluence.ListSessionPages(ctx)
	if err != nil {
		return fmt.Errorf("list confluence session pages: %w", err)
	}
	for _, title := range titles {
		if !wanted[title] {
			e.logger.Warn("confluence session page is obsolete", zap.String("title", title))
		}
	}
	return nil
}
