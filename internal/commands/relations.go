package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
)

// NoRelationsMessage is the reply for a listing of a group without relations.
const NoRelationsMessage = "No diplomatic relations yet."

// NoGroupsMessage is the reply for a group listing when nothing is stored.
const NoGroupsMessage = "No group data yet."

const (
	addRelationUsage    = "add_relation <name> <id> <their_diplomat> <our_diplomat> [screenshot]"
	listRelationsUsage  = "list_relations [page]"
	relationDetailUsage = "relation_detail <index|name>"
	qunUsage            = "qun [list [page] | <index|group_id>]"
	listUsage           = "list [page|group_id]"
	editRelationUsage   = "edit_relation <index|name> <new_name> <new_id> <their_diplomat> <our_diplomat> [screenshot]"
	deleteRelationUsage = "delete_relation <index|name>"
)

// RelationsPlugin exposes the relation registry as chat commands. It also
// tracks the group selected with qun for the list command.
type RelationsPlugin struct {
	reg      *relations.Registry
	pageSize int

	mu      sync.Mutex
	current string
}

// NewRelationsPlugin creates the plugin. The first stored group, if any,
// starts out selected.
func NewRelationsPlugin(reg *relations.Registry, pageSize int) *RelationsPlugin {
	if pageSize <= 0 {
		pageSize = relations.DefaultPageSize
	}
	p := &RelationsPlugin{reg: reg, pageSize: pageSize}
	if groups := reg.Groups(); len(groups) > 0 {
		p.current = groups[0]
	}
	return p
}

// Commands returns the plugin's chat commands.
func (p *RelationsPlugin) Commands() []Command {
	return []Command{
		{Name: "add_relation", Mutates: true, Usage: addRelationUsage, Summary: "Record a diplomatic relation for this group", Handler: p.addRelation},
		{Name: "list_relations", Usage: listRelationsUsage, Summary: "List this group's relations", Handler: p.listRelations},
		{Name: "relation_detail", Usage: relationDetailUsage, Summary: "Show one relation", Handler: p.relationDetail},
		{Name: "qun", Usage: qunUsage, Summary: "List groups or select the current group", Handler: p.qun},
		{Name: "list", Usage: listUsage, Summary: "Browse the selected group's relations", Handler: p.list},
		{Name: "edit_relation", Mutates: true, Usage: editRelationUsage, Summary: "Replace a relation", Handler: p.editRelation},
		{Name: "delete_relation", Mutates: true, Usage: deleteRelationUsage, Summary: "Delete a relation", Handler: p.deleteRelation},
	}
}

// CurrentGroup returns the group selected with qun.
func (p *RelationsPlugin) CurrentGroup() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *RelationsPlugin) addRelation(_ context.Context, msg Message, args []string) (Reply, error) {
	if msg.GroupID == "" {
		return Reply{}, groupOnly()
	}
	if len(args) < 4 {
		return Reply{}, usage(addRelationUsage)
	}
	rec := relations.Record{
		PartnerName:   args[0],
		PartnerID:     args[1],
		TheirDiplomat: args[2],
		OurDiplomat:   args[3],
		Screenshot:    screenshot(msg, args, 4),
	}
	stored, err := p.reg.Add(msg.GroupID, rec)
	if err != nil {
		return Reply{}, err
	}
	return relationChanged("Relation established", stored), nil
}

func (p *RelationsPlugin) listRelations(_ context.Context, msg Message, args []string) (Reply, error) {
	if msg.GroupID == "" {
		return Reply{}, groupOnly()
	}
	page, err := p.reg.List(msg.GroupID, pageArg(args, 0), p.pageSize)
	if err != nil {
		return Reply{}, err
	}
	if page.Total == 0 {
		return Reply{Text: NoRelationsMessage}, nil
	}
	header := fmt.Sprintf("Relations (page %d/%d, %d total):", page.Number, page.TotalPages, page.Total)
	footer := fmt.Sprintf("\nUse /relation_detail <index|name> for details\nUsage: /%s, %d per page", listRelationsUsage, p.pageSize)
	return Reply{Text: renderPage(header, page, footer)}, nil
}

func (p *RelationsPlugin) relationDetail(_ context.Context, msg Message, args []string) (Reply, error) {
	if msg.GroupID == "" {
		return Reply{}, groupOnly()
	}
	if len(args) == 0 {
		return Reply{}, usage(relationDetailUsage)
	}
	entry, err := p.reg.Detail(msg.GroupID, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	return relationDetail(entry.Record), nil
}

func (p *RelationsPlugin) qun(_ context.Context, _ Message, args []string) (Reply, error) {
	if len(args) == 0 || args[0] == "list" {
		page, err := p.reg.ListGroups(pageArg(args, 1), p.pageSize)
		if err != nil {
			return Reply{}, err
		}
		if page.Total == 0 {
			return Reply{Text: NoGroupsMessage}, nil
		}
		lines := []string{fmt.Sprintf("Groups (page %d/%d, %d total):", page.Number, page.TotalPages, page.Total)}
		for _, g := range page.Groups {
			lines = append(lines, fmt.Sprintf("%d. Group: %s", g.Index, g.Group))
		}
		lines = append(lines, fmt.Sprintf("\nUse qun <index|group_id> to switch the current group\nUsage: qun list [page], %d per page", p.pageSize))
		return Reply{Text: strings.Join(lines, "\n")}, nil
	}

	if len(p.reg.Groups()) == 0 {
		return Reply{Text: NoGroupsMessage}, nil
	}
	gid, err := p.reg.ResolveGroup(args[0])
	if err != nil {
		return Reply{}, err
	}
	p.mu.Lock()
	p.current = gid
	p.mu.Unlock()
	return Reply{Text: fmt.Sprintf("Switched to group %s; use list to browse its relations", gid)}, nil
}

func (p *RelationsPlugin) list(_ context.Context, _ Message, args []string) (Reply, error) {
	gid := p.CurrentGroup()
	if gid == "" {
		return Reply{}, apperr.New(apperr.ErrInvalidContext, "Select a group with qun first.")
	}

	if len(args) == 0 || relations.IsDigits(args[0]) {
		page, err := p.reg.List(gid, pageArg(args, 0), p.pageSize)
		if err != nil {
			return Reply{}, err
		}
		if page.Total == 0 {
			return Reply{Text: NoRelationsMessage}, nil
		}
		header := fmt.Sprintf("Group %s relations (page %d/%d, %d total):", gid, page.Number, page.TotalPages, page.Total)
		footer := fmt.Sprintf("\nUse list <group_id> for details\nUsage: list [page], %d per page", p.pageSize)
		return Reply{Text: renderPage(header, page, footer)}, nil
	}

	entry, err := p.reg.FindByPartnerID(gid, args[0])
	if err != nil {
		return Reply{}, err
	}
	return relationDetail(entry.Record), nil
}

func (p *RelationsPlugin) editRelation(_ context.Context, msg Message, args []string) (Reply, error) {
	if msg.GroupID == "" {
		return Reply{}, groupOnly()
	}
	if len(args) < 5 {
		return Reply{}, usage(editRelationUsage)
	}
	rec := relations.Record{
		PartnerName:   args[1],
		PartnerID:     args[2],
		TheirDiplomat: args[3],
		OurDiplomat:   args[4],
		Screenshot:    screenshot(msg, args, 5),
	}
	stored, err := p.reg.Edit(msg.GroupID, args[0], rec)
	if err != nil {
		return Reply{}, err
	}
	return relationChanged("Relation updated", stored), nil
}

func (p *RelationsPlugin) deleteRelation(_ context.Context, msg Message, args []string) (Reply, error) {
	if msg.GroupID == "" {
		return Reply{}, groupOnly()
	}
	if len(args) == 0 {
		return Reply{}, usage(deleteRelationUsage)
	}
	_, left, err := p.reg.Delete(msg.GroupID, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("Relation deleted\nRelations remaining: %d", left)}, nil
}

func groupOnly() error {
	return apperr.New(apperr.ErrInvalidContext, "This command is only available in group chats.")
}

// screenshot prefers an image attached to the message over the text
// argument at position pos.
func screenshot(msg Message, args []string, pos int) string {
	if ref, ok := msg.image(); ok {
		return ref
	}
	if len(args) > pos {
		return args[pos]
	}
	return ""
}

// pageArg reads a page number at position pos, defaulting to 1 when the
// token is missing or not numeric.
func pageArg(args []string, pos int) int {
	if len(args) <= pos || !relations.IsDigits(args[pos]) {
		return 1
	}
	n, err := strconv.Atoi(args[pos])
	if err != nil {
		return -1
	}
	return n
}
