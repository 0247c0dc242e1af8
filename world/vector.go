package world

import (
	"snapsync/pb"
)

type Point struct {
	X, Y float32
}

func (p Point) Add(dx, dy float32) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) ToTileCoordinates() (int64, int64) {
	return int64(p.X), int64(p.Y)
}

func (p *Point) ToProto() *pb.Vector {
	return &pb.Vector{
		X: p.X,
		Y: p.Y,
	}
}

func PointFromProto(v *pb.Vector) Point {
	return Point{
		X: v.X,
		Y: v.Y,
	}
}
