// Package regression implements a Bayesian time-varying linear regression
// between two standardized price series.
//
// The model lets both the intercept and the slope drift as Gaussian random
// walks, so for observations (x_t, y_t), t = 1..T:
//
//	alpha_1, beta_1      ~ N(0, initVar)
//	alpha_t | alpha_t-1  ~ N(alpha_t-1, walkVarA)
//	beta_t  | beta_t-1   ~ N(beta_t-1,  walkVarB)
//	y_t                  ~ N(alpha_t + beta_t*x_t, noiseVar)
//
// with inverse-gamma priors on the three variances. Because the model is
// linear and Gaussian given the variances, the posterior is sampled by a
// Gibbs sampler that alternates a forward-filter backward-sampling sweep
// for the whole coefficient path with conjugate inverse-gamma updates for
// the variances. Multiple chains run concurrently, each on its own
// deterministic random stream, and the collected draws feed the posterior
// summaries, convergence diagnostics and report writers.
package regression
