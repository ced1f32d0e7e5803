/*
Package registry holds the broker's endpoint registry: the parsed, immutable mapping from
endpoint name to the program that handles a set of file formats, together with the loader
for the line-oriented configuration source and the compatibility check used before routing.
*/
package registry
