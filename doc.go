// Package flecs binds Go programs to an embedded ECS core.
//
// A World owns one native world. Entities are plain handles pairing a World
// with an Id; every operation on an Entity is forwarded to the native core.
// Component types are declared up front in a Registry, either with the
// Struct builder, with Enum, with RegisterType or from yaml files, and are
// created in every World when it is constructed:
//
//	flecs.Struct("Position").
//		Member("x", flecs.PrimF64).
//		Member("y", flecs.PrimF64).
//		Register()
//
//	world, err := flecs.NewWorld()
//	if err != nil {
//		return err
//	}
//
//	defer world.Close()
//
// Entity trees are usually declared with the script language:
//
//	_, err = world.NewScripted(`a { Position: {x: 1, y: 2} }`)
//
// and found again with queries, which return their results as json:
//
//	q, err := world.Query("$comp, $comp(up)")
//	rows, err := q.Exec(flecs.ExecOptions{Variables: map[string]any{"comp": "Position"}})
//
// The native core is reached through the interfaces of package native.
// Without WithLibrary, worlds are created by the in-process core of package
// simcore. Package wasmcore runs a WebAssembly build of the native core.
//
// Nothing in this package is safe for concurrent use, except the Registry.
// Handles of a World must not be used after the World was closed.
package flecs
