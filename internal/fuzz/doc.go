// Package fuzztests houses Go fuzz harnesses for the SPIR-V pipeline
// (reader -> lowering -> lifting -> writer). They guard against panics and
// allocation blowups on arbitrary binaries.
//
// Назначение: прогонять произвольные байты через spv.Read, lower.Lower и
// lift.Lift.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
package fuzztests
