// Package ensemble implements gradient-boosted tree ensembles.
//
// GradientBoostingClassifier follows scikit-learn's GradientBoostingClassifier
// with the multinomial deviance loss: every stage fits one
// tree.DecisionTreeRegressor per class on the residuals y_k - p_k and replaces
// the leaf values with a single Newton step. The per-class trees of a stage
// are fitted concurrently; each tree draws from its own seed, so results do
// not depend on scheduling.
package ensemble
