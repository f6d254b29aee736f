// Package scores defines the per-media segment score records produced by the
// analysis pipeline and the policy evaluation that decides, from raw
// per-category confidence scores and the live filter policy, whether a
// segment qualifies for filtering.
//
// Raw scores are never thresholded at rest. Evaluation is pure and runs
// against the policy supplied at call time, so a policy change takes effect
// on the very next check without any cache invalidation.
package scores
