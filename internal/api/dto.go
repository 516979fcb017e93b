package api

import (
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/commands"
)

// CommandRequest is the body of POST /api/commands.
type CommandRequest struct {
	Text     string              `json:"text"`
	GroupID  string              `json:"group_id,omitempty"`
	SenderID string              `json:"sender_id,omitempty"`
	Images   []commands.ImageRef `json:"images,omitempty"`
}

// CommandResponse carries the bot reply. Error holds the failure code
// (invalid_arguments, not_found, ...) when the command was rejected.
type CommandResponse struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
	Error string `json:"error,omitempty"`
}

// SlackCommand is a Slack slash-command form post.
type SlackCommand struct {
	Token       string `schema:"token"`
	TeamID      string `schema:"team_id"`
	TeamDomain  string `schema:"team_domain"`
	ChannelID   string `schema:"channel_id"`
	ChannelName string `schema:"channel_name"`
	UserID      string `schema:"user_id"`
	UserName    string `schema:"user_name"`
	Command     string `schema:"command"`
	Text        string `schema:"text"`
	ResponseURL string `schema:"response_url"`
	TriggerID   string `schema:"trigger_id"`
}

// Message converts the form post into a chat message. Direct-message
// channels (ids starting with "D") are private chats.
func (s SlackCommand) Message() commands.Message {
	msg := commands.Message{
		Text:     s.Command + " " + s.Text,
		SenderID: s.UserID,
	}
	if s.ChannelID != "" && s.ChannelID[0] != 'D' {
		msg.GroupID = s.ChannelID
	}
	return msg
}

// SlackResponse is the synchronous slash-command reply.
type SlackResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// TransactionRow is one line of the CSV transaction export.
type TransactionRow struct {
	Time      string `csv:"time"`
	Person    string `csv:"person"`
	Type      string `csv:"type"`
	Amount    string `csv:"amount"`
	DailyRate string `csv:"daily_rate"`
}

// RelationItem is one relation in GET /api/relations/{group}.
type RelationItem struct {
	ID            string `json:"id"`
	Index         int    `json:"index"`
	PartnerName   string `json:"partner_name"`
	PartnerID     string `json:"partner_id"`
	TheirDiplomat string `json:"their_diplomat"`
	OurDiplomat   string `json:"our_diplomat"`
	Screenshot    string `json:"screenshot,omitempty"`
}

// RelationListResponse wraps a group's relations.
type RelationListResponse struct {
	Group     string         `json:"group"`
	Relations []RelationItem `json:"relations"`
	Total     int            `json:"total"`
}
