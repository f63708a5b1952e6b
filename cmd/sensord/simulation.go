package main

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/sensorkit/internal/sensor"
	"github.com/banshee-data/sensorkit/internal/sensor/entity"
)

// wheelOffset is the distance of each collider from its body along X.
const wheelOffset = 0.5

var vehicleTags = []string{"car", "cyclist", "pedestrian"}

// vehicle is a body with two colliders orbiting a point near the sensor.
type vehicle struct {
	body, left, right entity.Handle
	center            r3.Vec
	radius            float64
	angle, speed      float64
}

// simulation moves synthetic vehicles through the sensor's range and
// pulses the sensor after each step.
type simulation struct {
	world    *entity.Registry
	sensor   *sensor.Sensor
	vehicles []vehicle
}

// newSimulation lays out n vehicles on orbits that cross the detection
// sphere of radius reach, so detections appear and disappear over time.
func newSimulation(world *entity.Registry, n int, reach float64) *simulation {
	sim := &simulation{world: world, vehicles: make([]vehicle, 0, n)}
	for i := 0; i < n; i++ {
		side := 1.0
		if i%2 == 1 {
			side = -1.0
		}
		tag := vehicleTags[i%len(vehicleTags)]
		v := vehicle{
			center: r3.Vec{X: side * reach * 0.8, Y: float64(i%3-1) * reach * 0.3},
			radius: reach * 0.6,
			angle:  float64(i) * 2 * math.Pi / float64(max(n, 1)),
			speed:  0.02 + 0.01*float64(i%4),
		}
		v.body = world.Create(entity.Spec{Tag: tag})
		v.left = world.Create(entity.Spec{Tag: tag, Body: v.body})
		v.right = world.Create(entity.Spec{Tag: tag, Body: v.body})
		sim.vehicles = append(sim.vehicles, v)
		sim.place(&sim.vehicles[len(sim.vehicles)-1])
	}
	return sim
}

func (sim *simulation) isCollider(h entity.Handle) bool {
	return sim.world.Body(h) != entity.None
}

// Pulse advances every vehicle one step and pulses the sensor.
func (sim *simulation) Pulse() {
	for i := range sim.vehicles {
		v := &sim.vehicles[i]
		v.angle = math.Mod(v.angle+v.speed, 2*math.Pi)
		sim.place(v)
	}
	if sim.sensor != nil {
		sim.sensor.Pulse()
	}
}

func (sim *simulation) place(v *vehicle) {
	p := r3.Add(v.center, r3.Vec{X: v.radius * math.Cos(v.angle), Y: v.radius * math.Sin(v.angle)})
	offset := r3.Vec{X: wheelOffset}
	sim.world.SetPosition(v.body, p)
	sim.world.SetPosition(v.left, r3.Sub(p, offset))
	sim.world.SetPosition(v.right, r3.Add(p, offset))
}
