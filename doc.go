/*
Package curvefitting fits an ordered sequence of 2D sample points with a
path of Bézier segments of degree 1, 2 or 3, minimizing weighted squared
distance between the samples and the curve.

The algorithm follows the classic adaptive scheme: assign each sample a
parameter by chord-length parametrization, solve a weighted least-squares
system for the interior control points (the endpoints always interpolate
the endpoint samples), improve the parameters by a Newton step towards the
foot of the perpendicular, and iterate while the residual keeps dropping.
If the farthest sample still deviates from the fitted curve by more than
the tolerance, the interval is split at that sample and both halves are
fitted recursively. See

	Philip J. Schneider, An Algorithm for Automatically Fitting
	Digitized Curves. In: Graphics Gems, Academic Press, 1990.

for the lineage of this approach. Least-squares weights favor samples near
the interval ends over samples near the middle, which counteracts the
tendency of an unweighted fit to round off corners; the weighting policy is
configurable (see WeightFunc).

Two engines are provided. FindPath computes a fitted path in one call.
PausableFinder runs the identical computation on a worker goroutine that
suspends at well-defined checkpoints, so that a driver can inspect the
intermediate state (parametrization, control points, residual, split
decision) between steps; it is built on the hand-off primitive in package
coro.

# BSD License

Copyright (c) Erik Colban

All rights reserved.

Please refer to the license file for more information.
*/
package curvefitting
