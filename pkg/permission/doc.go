// Package permission implements an explainable role/permission evaluation
// engine: custom roles with inheritance, per-resource/per-action rules,
// per-user overrides and always-deny restrictions, resolved into a single
// allow/deny decision with the deciding layer attached.
//
// # Model
//
//   - Rule: a grant or an explicit deny for one (resource, action) pair.
//     Absence of a rule is a third, distinct state: no opinion.
//   - Role: a named bundle of rules, optionally inheriting the effective
//     rules of other roles. The inheritance relation must stay acyclic;
//     the edge that would close a cycle is rejected at save time.
//   - User: role assignments plus custom per-user rules and restrictions.
//     An inactive user is denied everything.
//   - Restriction: a user-level rule that denies its pair regardless of
//     any grant found anywhere else.
//
// Resolution precedence, ascending: primary role, additional roles in
// assignment order (later overrides earlier), custom permissions,
// restrictions. Any pair no layer has an opinion on denies by default.
//
// # Snapshots
//
// All data lives in an immutable, versioned Snapshot published through an
// atomic pointer by Store. Mutations validate a candidate snapshot
// (cycles, dangling references, system-role protection) and either
// publish it whole or leave the prior snapshot untouched. Evaluations
// never block on mutations and never see a partially-updated graph.
//
// # Usage
//
//	store := permission.NewStore()
//	_ = store.SaveRole(ctx, actor, permission.Role{
//	    ID:   "viewer",
//	    Name: "viewer",
//	    Permissions: []permission.Rule{
//	        {ID: "r1", Resource: "project", Action: "view", Granted: true},
//	    },
//	})
//
//	engine := permission.New(store, permission.WithRecorder(recorder))
//	ev := engine.Evaluate(ctx, "user-1", "project", "view")
//	if ev.Allowed() {
//	    // ev.Source and ev.RoleID/ev.RuleID explain the decision.
//	}
//
// Resource and action strings are opaque, case-sensitive identifiers.
// Wildcard matching is deliberately not part of the engine; see
// pkg/wildcard for a caller-side layer.
package permission
