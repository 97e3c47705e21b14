// package syncer turns remote playlist snapshots into local folder
// state.
//
// A run has three stages: [SnapshotSource.Build] observes the remote
// catalog, [Reconcile] diffs the snapshots against the manifest into a
// [Plan], and [Executor.Execute] applies the plan. Reconcile is pure,
// which keeps dry runs cheap and the planning logic testable without a
// filesystem or network.
package syncer
