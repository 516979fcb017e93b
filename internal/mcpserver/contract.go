package mcpserver

// CommandGuide explains the command surface to LLM clients.
const CommandGuide = `# Palacebot Command Guide

Every chat command is exposed as a tool of the same name. Pass the words that
would follow the command in chat as ` + "`arguments`" + `, separated by spaces.

## Context

* Relation commands (add_relation, list_relations, relation_detail,
  edit_relation, delete_relation) belong to one chat group. Pass its id as
  ` + "`group_id`" + `. Without it the call behaves like a private chat and is rejected.
* qun and list work without a group: qun selects the group that list browses.
* Ledger commands (add_borrow, query_borrow, repay, query_detail) are global.

## Selectors

* A relation selector is either a 1-based display index as shown by
  list_relations or a partner name. Indices shift after every edit or delete,
  so list again before selecting by index.
* get_relation reads one relation by its stable id, which survives edits.

## Values

* Amounts and daily rates are decimal numbers. A rate of 0.01 means 1% of the
  principal per whole day elapsed.
* ` + "`image`" + ` is an optional screenshot reference (file id or URL). When given it
  takes priority over a screenshot word in arguments.
`
