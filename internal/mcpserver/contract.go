package mcpserver

// ChartFormatContract describes the chart JSON format and the editing rules
// that LLM consumers should follow.
const ChartFormatContract = `# Orgboard Chart Format

The chart is a single JSON document:

` + "```" + `json
{
  "departments": [
    {
      "id": "available-roles",
      "name": "Available Roles",
      "levels": [
        { "id": "available-roles-level-0", "roles": ["Designer"] }
      ]
    },
    {
      "id": "4f1c...",
      "name": "Engineering",
      "levels": [
        { "id": "9a2e...", "roles": ["Backend", "Frontend"] },
        { "id": "b7d0...", "roles": [] }
      ]
    }
  ]
}
` + "```" + `

## Rules

1. **Available Roles** (id ` + "`" + `available-roles` + "`" + `) always exists. New roles land at the
   end of its first level.
2. **Role names are unique ignoring case.** ` + "`" + `Engineer` + "`" + ` and ` + "`" + `engineer` + "`" + ` cannot both exist.
   The casing used at creation is kept.
3. **Each role sits in exactly one level.** Moving a role removes it from its source.
4. **Every department has at least one level.** Levels are ordered; index 0 is the first.
5. **Department names may repeat.** Departments and levels are addressed by id only.

## Slots and moves

- A slot key is ` + "`" + `<department id>:<level id>` + "`" + `, e.g. ` + "`" + `available-roles:available-roles-level-0` + "`" + `.
- ` + "`" + `from_index` + "`" + ` must be the role's current index in the source level, otherwise the
  move is rejected as stale. Call ` + "`" + `get_chart` + "`" + ` and retry.
- ` + "`" + `to_index` + "`" + ` is the role's final index in the target level. Values past the end append.
- Moving ` + "`" + `[A, B, C]` + "`" + ` A from 0 to 2 gives ` + "`" + `[B, C, A]` + "`" + `.

## Persistence

- ` + "`" + `add_role` + "`" + ` saves the whole chart immediately.
- ` + "`" + `add_department` + "`" + `, ` + "`" + `add_level` + "`" + ` and ` + "`" + `move_role` + "`" + ` are kept in the session until
  ` + "`" + `save_chart` + "`" + `. Saving overwrites the stored chart; the last writer wins.
`
